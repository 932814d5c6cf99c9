package core

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Exam is the read-only exam an upload targets. MaxMarks bounds valid marks.
type Exam struct {
	ID       string `json:"id" validate:"required"`
	Title    string `json:"title"`
	MaxMarks int    `json:"max_marks" validate:"gt=0"`
}

// Student is a read-only roster entry used for enrollment number matching.
type Student struct {
	ID               string `json:"id" validate:"required"`
	EnrollmentNumber string `json:"enrollment_number" validate:"notblank"`
	DisplayName      string `json:"display_name"`
}

// CsvRow is one parsed data line of a marks file. It lives only for the
// duration of an upload.
type CsvRow struct {
	Line             int     // 1-based line number in the file
	EnrollmentNumber string  // trimmed, quotes stripped
	Marks            int     // valid only when MarksValid
	MarksRaw         string  // cell text as read, for error messages
	MarksValid       bool    // false when the cell was not an integer (strict mode)
	Remarks          *string // nil when absent or empty
}

// ResultStatus is the grading state of an exam result.
type ResultStatus string

const (
	StatusPending ResultStatus = "PENDING"
	StatusGraded  ResultStatus = "GRADED"
)

// ExamResult is the durable record of a student's marks for an exam.
// At most one exists per (ExamID, StudentID).
type ExamResult struct {
	ID            string       `json:"id"`
	ExamID        string       `json:"exam_id"`
	StudentID     string       `json:"student_id"`
	MarksObtained int          `json:"marks_obtained"`
	Percentage    *float64     `json:"percentage,omitempty"`
	Remarks       *string      `json:"remarks,omitempty"`
	Status        ResultStatus `json:"status"`
	ExaminerID    string       `json:"examiner_id"`
	SubmittedAt   time.Time    `json:"submitted_at"`
	UpdatedAt     *time.Time   `json:"updated_at,omitempty"`
}

// PercentageOf returns the stored percentage or derives it from the marks.
func (r ExamResult) PercentageOf(maxMarks int) float64 {
	if r.Percentage != nil {
		return *r.Percentage
	}
	return Percentage(r.MarksObtained, maxMarks)
}

// Percentage computes marks/maxMarks*100 rounded to two decimal places.
func Percentage(marks, maxMarks int) float64 {
	if maxMarks <= 0 {
		return 0
	}
	return math.Round(float64(marks)/float64(maxMarks)*100*100) / 100
}

// WriteOp is the kind of write planned for a row.
type WriteOp string

const (
	OpInsert WriteOp = "insert"
	OpUpdate WriteOp = "update"
)

// ResultWrite is the field set written for one exam result.
type ResultWrite struct {
	ExamID        string
	StudentID     string
	MarksObtained int
	Percentage    *float64
	Remarks       *string
	Status        ResultStatus
	ExaminerID    string
	At            time.Time // submitted_at on insert, updated_at on update
}

// WritePlan pairs a write with the operation the planner expects it to be.
type WritePlan struct {
	Op       WriteOp
	ResultID string // existing result id when Op is OpUpdate
	Write    ResultWrite
}

// ResultStore is the backing store for exam results.
//
// UpsertResult must be atomic with respect to (ExamID, StudentID): concurrent
// calls for the same pair leave exactly one row.
type ResultStore interface {
	FindResult(ctx context.Context, examID, studentID string) (*ExamResult, error)
	UpsertResult(ctx context.Context, w ResultWrite) (ExamResult, error)
	ListResults(ctx context.Context, examID string) ([]ExamResult, error)
}

// Roster supplies the exam and the students eligible for it.
type Roster interface {
	GetExam(ctx context.Context, examID string) (Exam, error)
	ListStudents(ctx context.Context, examID string) ([]Student, error)
}

// UploadStatus accumulates the outcome of one batch.
type UploadStatus struct {
	Total      int      `json:"total"`
	Processed  int      `json:"processed"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Inserted   int      `json:"inserted"`
	Updated    int      `json:"updated"`
	Cancelled  bool     `json:"cancelled,omitempty"`
	Errors     []string `json:"errors"`
}

// Clean reports whether the batch wrote something and nothing failed.
// Only clean batches fire the success follow-up.
func (s UploadStatus) Clean() bool {
	return s.Failed == 0 && s.Successful > 0
}

// Percent returns processed rows as a percentage of the total (0-100).
func (s UploadStatus) Percent() int {
	if s.Total <= 0 {
		return 0
	}
	return (s.Processed * 100) / s.Total
}

// DisplayErrors returns at most limit errors plus a trailing note for the rest.
// The full list stays in Errors.
func (s UploadStatus) DisplayErrors(limit int) []string {
	if limit <= 0 || len(s.Errors) <= limit {
		return s.Errors
	}
	shown := make([]string, 0, limit+1)
	shown = append(shown, s.Errors[:limit]...)
	return append(shown, fmt.Sprintf("... and %d more errors", len(s.Errors)-limit))
}

// ProgressFunc receives a snapshot of the status after every processed row.
type ProgressFunc func(UploadStatus)

// UploadPhase indicates the current stage of an asynchronous upload.
type UploadPhase string

const (
	PhaseStarting   UploadPhase = "starting"
	PhaseParsing    UploadPhase = "parsing"
	PhaseProcessing UploadPhase = "processing"
	PhaseComplete   UploadPhase = "complete"
	PhaseFailed     UploadPhase = "failed"
	PhaseCancelled  UploadPhase = "cancelled"
)

// UploadProgress is the observable state of an asynchronous upload.
type UploadProgress struct {
	UploadID string       `json:"upload_id"`
	ExamID   string       `json:"exam_id"`
	FileName string       `json:"file_name"`
	Phase    UploadPhase  `json:"phase"`
	Status   UploadStatus `json:"status"`
	Error    string       `json:"error,omitempty"` // file-level failure, set when Phase is PhaseFailed
}

// Percent returns the progress as a percentage (0-100).
func (p UploadProgress) Percent() int {
	if p.Phase == PhaseComplete {
		return 100
	}
	return p.Status.Percent()
}

// UploadResult is the final outcome of an asynchronous upload.
type UploadResult struct {
	UploadID string        `json:"upload_id"`
	ExamID   string        `json:"exam_id"`
	FileName string        `json:"file_name"`
	Status   UploadStatus  `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}
