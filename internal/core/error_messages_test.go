package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassifyWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantPrefix string
	}{
		{"nil", nil, ""},
		{"pg foreign key", &pgconn.PgError{Code: "23503", Message: "violates fk"}, "reference error: violates fk"},
		{"pg unique", &pgconn.PgError{Code: "23505", Message: "dup"}, "duplicate record: dup"},
		{"pg undefined column", &pgconn.PgError{Code: "42703", Message: "column x"}, "schema error: column x"},
		{"pg undefined table", &pgconn.PgError{Code: "42P01", Message: "relation y"}, "schema error: relation y"},
		{"pg other code passes message", &pgconn.PgError{Code: "57014", Message: "canceling statement"}, "canceling statement"},
		{"wrapped pg error", fmt.Errorf("upsert: %w", &pgconn.PgError{Code: "23505"}), "duplicate record"},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: exam_results.exam_id"), "duplicate record"},
		{"sqlite foreign key", errors.New("FOREIGN KEY constraint failed"), "reference error"},
		{"sqlite missing column", errors.New("table exam_results has no column named grade: no such column"), "schema error"},
		{"unknown", errors.New("connection closed"), "connection closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyWriteError(tt.err)
			if !strings.HasPrefix(got, tt.wantPrefix) || (tt.wantPrefix == "" && got != "") {
				t.Errorf("ClassifyWriteError() = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil", nil, ""},
		{"missing column", &MissingColumnError{Missing: []string{"marks"}}, "VAL003"},
		{"out of range", &OutOfRangeError{Marks: 120, MaxMarks: 100}, "VAL001"},
		{"student not found", &StudentNotFoundError{EnrollmentNumber: "S9"}, "VAL004"},
		{"empty file", ErrEmptyFile, "FILE003"},
		{"invalid csv", fmt.Errorf("invalid csv: %w", errors.New("bare quote")), "FILE002"},
		{"validation", &ValidationError{Fields: map[string]string{"id": "required"}}, "VAL005"},
		{"too many uploads", ErrTooManyUploads, "UPL002"},
		{"upload not found", fmt.Errorf("%w: abc", ErrUploadNotFound), "UPL003"},
		{"cancelled", ErrUploadCancelled, "UPL001"},
		{"not owner", fmt.Errorf("%w: abc", ErrNotUploadOwner), "UPL006"},
		{"exam not found", fmt.Errorf("%w: e1", ErrExamNotFound), "EXM001"},
		{"duplicate key", errors.New("ERROR: duplicate key value"), "DB001"},
		{"case insensitive", errors.New("FOREIGN KEY constraint failed"), "DB002"},
		{"unknown", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err).Code; got != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrEmptyFile)
	want := "The uploaded file is empty (Code: FILE003). Upload a CSV with a header and at least one row"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Fatal("NewUserError(nil) should be nil")
	}

	ue := NewUserError(ErrTooManyUploads)
	if ue.Error() != "System is busy processing other uploads" {
		t.Errorf("Error() = %q", ue.Error())
	}
	if !errors.Is(ue, ErrTooManyUploads) {
		t.Error("UserError should unwrap to the technical error")
	}
	if !IsUserFacing(ErrTooManyUploads) || IsUserFacing(errors.New("xyz")) {
		t.Error("IsUserFacing mismatch")
	}
}
