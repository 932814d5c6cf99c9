package core

// error_messages.go maps technical errors to user-facing text.
//
// Two mappings live here:
//
//   - ClassifyWriteError turns a store rejection for one row into one of
//     three display categories (reference error, duplicate record, schema
//     error) or the raw message. Postgres SQLSTATE codes are used when the
//     driver exposes them; message substrings are the fallback for SQLite and
//     anything else.
//
//   - MapError turns file-level and request-level failures into a message,
//     an action and a code that users can quote to support.
//
// # Error Codes Reference
//
//	DB001   Duplicate result       "duplicate key", "unique constraint"
//	DB002   Unknown exam/student   "foreign key"
//	DB003   Connection refused     "connection refused"
//	DB004   Connection reset       "connection reset"
//	DB005   Timeout                "timeout"
//	VAL001  Marks out of range     "out of range"
//	VAL002  Invalid marks          "invalid number"
//	VAL003  Missing column         "missing required column"
//	VAL004  Student not found      "student not found"
//	VAL005  Invalid input          "validation failed"
//	FILE001 File too large         "file too large"
//	FILE002 Invalid CSV            "invalid csv"
//	FILE003 Empty file             "csv file is empty"
//	FILE004 No file                "no file provided"
//	UPL001  Upload cancelled       "upload cancelled"
//	UPL002  System busy            "too many uploads"
//	UPL003  Upload expired         "upload not found"
//	UPL004  Request cancelled      "context canceled"
//	UPL005  Request timeout        "context deadline exceeded"
//	EXM001  Exam not found         "exam not found"
//	RATE001 Rate limited           "rate limit"
//	ERR000  Unknown error          (fallback)
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Write error categories shown in row errors.
const (
	CategoryReference = "reference error"
	CategoryDuplicate = "duplicate record"
	CategorySchema    = "schema error"
)

// Postgres SQLSTATE codes the executor classifies.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgUndefinedColumn     = "42703"
	pgUndefinedTable      = "42P01"
)

// writePatterns are the substring fallbacks for drivers without typed codes.
var writePatterns = []struct {
	pattern  string
	category string
}{
	{"foreign key", CategoryReference},
	{"violates unique", CategoryDuplicate},
	{"unique constraint", CategoryDuplicate},
	{"duplicate key", CategoryDuplicate},
	{"no such column", CategorySchema},
	{"no such table", CategorySchema},
	{"does not exist", CategorySchema},
	{"schema", CategorySchema},
}

// ClassifyWriteError returns the display reason for a failed row write.
func ClassifyWriteError(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return categorized(CategoryReference, pgErr.Message)
		case pgUniqueViolation:
			return categorized(CategoryDuplicate, pgErr.Message)
		case pgUndefinedColumn, pgUndefinedTable:
			return categorized(CategorySchema, pgErr.Message)
		}
		return pgErr.Message
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, wp := range writePatterns {
		if strings.Contains(lower, wp.pattern) {
			return categorized(wp.category, msg)
		}
	}
	return msg
}

func categorized(category, detail string) string {
	if detail == "" {
		return category
	}
	return category + ": " + detail
}

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Database
	{"duplicate key", UserMessage{"A result for this student already exists", "Re-upload to update the existing result", "DB001"}},
	{"unique constraint", UserMessage{"A result for this student already exists", "Re-upload to update the existing result", "DB001"}},
	{"foreign key", UserMessage{"The exam or student no longer exists", "Refresh the exam and try again", "DB002"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB003"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB004"}},

	// Validation
	{"out of range", UserMessage{"Marks are outside the exam's range", "Marks must be between 0 and the exam's maximum", "VAL001"}},
	{"invalid number", UserMessage{"Marks must be whole numbers", "Remove text and decimals from the marks column", "VAL002"}},
	{"missing required column", UserMessage{"Required column is missing from CSV", "Include enrollment_no and marks columns; download the sample file for the exact layout", "VAL003"}},
	{"student not found", UserMessage{"Enrollment number does not match any student", "Check the enrollment number against the class list", "VAL004"}},
	{"validation failed", UserMessage{"Some input values are invalid", "Correct the highlighted fields and try again", "VAL005"}},

	// File
	{"file too large", UserMessage{"File exceeds maximum size limit", "Split the file into smaller files", "FILE001"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Save the sheet as comma-separated values", "FILE002"}},
	{"csv file is empty", UserMessage{"The uploaded file is empty", "Upload a CSV with a header and at least one row", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV file to upload", "FILE004"}},

	// Upload
	{"upload cancelled", UserMessage{"Upload was cancelled", "Start a new upload when ready", "UPL001"}},
	{"too many uploads", UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL002"}},
	{"upload not found", UserMessage{"Upload session not found", "The upload may have expired. Please start a new upload", "UPL003"}},
	{"belongs to another examiner", UserMessage{"This upload was started by another examiner", "Ask the examiner who started it or an admin to cancel it", "UPL006"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or check your connection", "UPL005"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB005"}},

	// Exams
	{"exam not found", UserMessage{"Exam not found", "Check the exam and try again", "EXM001"}},

	// Rate limiting
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a known, specific message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a user message with the technical error behind it.
type UserError struct {
	UserMessage
	Err error
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError maps err to a UserError, keeping err for logging.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{UserMessage: MapError(err), Err: err}
}
