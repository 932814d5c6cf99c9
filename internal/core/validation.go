package core

// validation.go checks inputs at two levels:
//  1. Input validation: Exam, Student and ManualEntry structs are checked with
//     go-playground/validator before any write happens.
//  2. Row validation: each parsed CSV row is range-checked against the exam's
//     maximum marks. Row errors are collected and the batch continues.

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// OutOfRangeError reports marks outside 0..MaxMarks.
type OutOfRangeError struct {
	EnrollmentNumber string
	Marks            int
	MaxMarks         int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("marks %d out of range (0-%d)", e.Marks, e.MaxMarks)
}

// InvalidMarksError reports a marks cell that is not an integer.
type InvalidMarksError struct {
	EnrollmentNumber string
	Raw              string
}

func (e *InvalidMarksError) Error() string {
	return fmt.Sprintf("invalid number %q for marks", e.Raw)
}

// ValidateRow checks a parsed row against the exam. Bounds are inclusive.
func ValidateRow(row CsvRow, exam Exam) error {
	if !row.MarksValid {
		return &InvalidMarksError{EnrollmentNumber: row.EnrollmentNumber, Raw: row.MarksRaw}
	}
	return ValidateMarks(row.EnrollmentNumber, row.Marks, exam.MaxMarks)
}

// ValidateMarks checks 0 <= marks <= maxMarks.
func ValidateMarks(enrollment string, marks, maxMarks int) error {
	if marks < 0 || marks > maxMarks {
		return &OutOfRangeError{EnrollmentNumber: enrollment, Marks: marks, MaxMarks: maxMarks}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Struct validation
// ----------------------------------------------------------------------------

// ValidationError is an input validation failure. Fields maps JSON field
// names to translated messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

const notBlankTag = "notblank"

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON names, not Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if s, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return false
	})
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(ut.Translator, validator.FieldError) string { return "this field cannot be blank" },
	)
}

// ValidateStruct validates v against its `validate` tags.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(translator)
	}
	return &ValidationError{Fields: fields}
}
