// Package store implements core.ResultStore and core.Roster over Postgres
// (pgx, sqlc queries) and SQLite (modernc, database/sql).
//
// Both backends write results with a single INSERT ... ON CONFLICT
// (exam_id, student_id) DO UPDATE, so concurrent uploads for the same
// student can never produce two rows.
package store

import (
	"context"

	"github.com/JonMunkholm/markupload/internal/core"
)

// Store is everything the service and the seed tool need from a backend.
type Store interface {
	core.ResultStore
	core.Roster

	CreateExam(ctx context.Context, title string, maxMarks int) (core.Exam, error)
	AddStudent(ctx context.Context, examID, enrollmentNumber, displayName string) (core.Student, error)
	CountResults(ctx context.Context, examID string) (int, error)
	Close() error
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*SQLite)(nil)
)
