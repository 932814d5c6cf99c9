package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/markupload/internal/core"
	db "github.com/JonMunkholm/markupload/internal/database"
)

// Postgres is the production store.
type Postgres struct {
	pool *pgxpool.Pool
	q    *db.Queries
}

// NewPostgres wraps a connection pool. The schema must already be migrated.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: db.New(pool)}
}

// Ping checks the database connection for /healthz.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) GetExam(ctx context.Context, examID string) (core.Exam, error) {
	id, err := toPgUUID(examID)
	if err != nil {
		return core.Exam{}, fmt.Errorf("%w: %s", core.ErrExamNotFound, examID)
	}

	row, err := p.q.GetExam(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Exam{}, fmt.Errorf("%w: %s", core.ErrExamNotFound, examID)
	}
	if err != nil {
		return core.Exam{}, fmt.Errorf("get exam: %w", err)
	}

	return core.Exam{ID: fromPgUUID(row.ID), Title: row.Title, MaxMarks: int(row.MaxMarks)}, nil
}

func (p *Postgres) ListStudents(ctx context.Context, examID string) ([]core.Student, error) {
	id, err := toPgUUID(examID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrExamNotFound, examID)
	}

	rows, err := p.q.ListStudentsForExam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	students := make([]core.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, pgStudent(r))
	}
	return students, nil
}

func (p *Postgres) FindResult(ctx context.Context, examID, studentID string) (*core.ExamResult, error) {
	eid, err := toPgUUID(examID)
	if err != nil {
		return nil, nil
	}
	sid, err := toPgUUID(studentID)
	if err != nil {
		return nil, nil
	}

	row, err := p.q.GetExamResult(ctx, db.GetExamResultParams{ExamID: eid, StudentID: sid})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r := pgResult(row)
	return &r, nil
}

func (p *Postgres) UpsertResult(ctx context.Context, w core.ResultWrite) (core.ExamResult, error) {
	eid, err := toPgUUID(w.ExamID)
	if err != nil {
		return core.ExamResult{}, err
	}
	sid, err := toPgUUID(w.StudentID)
	if err != nil {
		return core.ExamResult{}, err
	}
	pct, err := toPgNumeric(w.Percentage)
	if err != nil {
		return core.ExamResult{}, err
	}
	at := w.At
	if at.IsZero() {
		at = time.Now()
	}

	row, err := p.q.UpsertExamResult(ctx, db.UpsertExamResultParams{
		ExamID:        eid,
		StudentID:     sid,
		MarksObtained: int32(w.MarksObtained),
		Percentage:    pct,
		Remarks:       toPgText(w.Remarks),
		Status:        string(w.Status),
		ExaminerID:    w.ExaminerID,
		SubmittedAt:   toPgTimestamptz(at),
	})
	if err != nil {
		return core.ExamResult{}, err
	}
	return pgResult(row), nil
}

func (p *Postgres) ListResults(ctx context.Context, examID string) ([]core.ExamResult, error) {
	id, err := toPgUUID(examID)
	if err != nil {
		return []core.ExamResult{}, nil
	}

	rows, err := p.q.ListExamResults(ctx, id)
	if err != nil {
		return nil, err
	}

	results := make([]core.ExamResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, pgResult(r))
	}
	return results, nil
}

func (p *Postgres) CountResults(ctx context.Context, examID string) (int, error) {
	id, err := toPgUUID(examID)
	if err != nil {
		return 0, nil
	}
	n, err := p.q.CountExamResults(ctx, id)
	return int(n), err
}

func (p *Postgres) CreateExam(ctx context.Context, title string, maxMarks int) (core.Exam, error) {
	row, err := p.q.CreateExam(ctx, db.CreateExamParams{Title: title, MaxMarks: int32(maxMarks)})
	if err != nil {
		return core.Exam{}, fmt.Errorf("create exam: %w", err)
	}
	return core.Exam{ID: fromPgUUID(row.ID), Title: row.Title, MaxMarks: int(row.MaxMarks)}, nil
}

// AddStudent creates a student and enrolls them in the exam in one
// transaction.
func (p *Postgres) AddStudent(ctx context.Context, examID, enrollmentNumber, displayName string) (core.Student, error) {
	eid, err := toPgUUID(examID)
	if err != nil {
		return core.Student{}, err
	}

	var student core.Student
	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		q := p.q.WithTx(tx)
		row, err := q.CreateStudent(ctx, db.CreateStudentParams{
			EnrollmentNumber: enrollmentNumber,
			DisplayName:      displayName,
		})
		if err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		if err := q.EnrollStudent(ctx, db.EnrollStudentParams{ExamID: eid, StudentID: row.ID}); err != nil {
			return fmt.Errorf("enroll student: %w", err)
		}
		student = pgStudent(row)
		return nil
	})
	return student, err
}

func pgStudent(s db.Student) core.Student {
	return core.Student{
		ID:               fromPgUUID(s.ID),
		EnrollmentNumber: s.EnrollmentNumber,
		DisplayName:      s.DisplayName,
	}
}

func pgResult(r db.ExamResult) core.ExamResult {
	out := core.ExamResult{
		ID:            fromPgUUID(r.ID),
		ExamID:        fromPgUUID(r.ExamID),
		StudentID:     fromPgUUID(r.StudentID),
		MarksObtained: int(r.MarksObtained),
		Percentage:    fromPgNumeric(r.Percentage),
		Remarks:       fromPgText(r.Remarks),
		Status:        core.ResultStatus(r.Status),
		ExaminerID:    r.ExaminerID,
		UpdatedAt:     fromPgTimestamptz(r.UpdatedAt),
	}
	if r.SubmittedAt.Valid {
		out.SubmittedAt = r.SubmittedAt.Time
	}
	return out
}
