package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Executor applies parsed rows to a ResultStore one at a time, in file order.
//
// Every row is independent: a validation, matching or write failure is
// recorded in the status and the next row is processed. Earlier writes are
// never undone.
type Executor struct {
	Store      ResultStore
	Exam       Exam
	Matcher    *StudentMatcher
	ExaminerID string

	// StorePercentage writes the computed percentage instead of NULL.
	StorePercentage bool

	// Now defaults to time.Now.
	Now func() time.Time

	// Progress, when set, receives a snapshot after every row.
	Progress ProgressFunc

	Logger *slog.Logger
}

// Run processes rows and returns the final status. A cancelled context
// stops the batch between rows and sets Cancelled.
func (e *Executor) Run(ctx context.Context, rows []CsvRow) UploadStatus {
	status := UploadStatus{
		Total:  len(rows),
		Errors: []string{},
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			status.Cancelled = true
			break
		}

		status.Processed++
		op, err := e.processRow(ctx, row)
		if err != nil {
			status.Failed++
			status.Errors = append(status.Errors, rowError(row, err))
		} else {
			status.Successful++
			if op == OpUpdate {
				status.Updated++
			} else {
				status.Inserted++
			}
		}

		if e.Progress != nil {
			e.Progress(status.snapshot())
		}
	}

	return status
}

// rowFailure carries an already-formatted reason for a row.
type rowFailure string

func (f rowFailure) Error() string { return string(f) }

// processRow validates, matches, plans and writes a single row. Panics are
// recovered so one row cannot abort the batch.
func (e *Executor) processRow(ctx context.Context, row CsvRow) (op WriteOp, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger().Error("row panicked", "line", row.Line, "enrollment", row.EnrollmentNumber, "panic", r)
			err = rowFailure("unexpected error")
		}
	}()

	if err := ValidateRow(row, e.Exam); err != nil {
		return "", err
	}

	student, err := e.Matcher.Match(row.EnrollmentNumber)
	if err != nil {
		return "", err
	}

	plan, err := PlanWrite(ctx, e.Store, e.Exam, student, row, e.ExaminerID, e.now())
	if err != nil {
		return "", rowFailure(ClassifyWriteError(err))
	}
	if e.StorePercentage {
		pct := Percentage(row.Marks, e.Exam.MaxMarks)
		plan.Write.Percentage = &pct
	}

	if _, err := e.Store.UpsertResult(ctx, plan.Write); err != nil {
		e.logger().Debug("row write failed", "line", row.Line, "error", err)
		return "", rowFailure(ClassifyWriteError(err))
	}

	return plan.Op, nil
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// rowError formats a row failure as "Row <line> (<enrollment>): <reason>".
func rowError(row CsvRow, err error) string {
	return fmt.Sprintf("Row %d (%s): %s", row.Line, row.EnrollmentNumber, err.Error())
}

// snapshot copies the status so callbacks never share the error slice.
func (s UploadStatus) snapshot() UploadStatus {
	s.Errors = append([]string(nil), s.Errors...)
	return s
}
