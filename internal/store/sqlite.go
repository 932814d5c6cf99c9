package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/markupload/internal/core"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

const timeLayout = time.RFC3339Nano

// SQLite is the single-file backend used for local runs and tests.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens dsn (a path or ":memory:") and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := initSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func initSQLite(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) GetExam(ctx context.Context, examID string) (core.Exam, error) {
	var e core.Exam
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, max_marks FROM exams WHERE id = ?", examID,
	).Scan(&e.ID, &e.Title, &e.MaxMarks)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Exam{}, fmt.Errorf("%w: %s", core.ErrExamNotFound, examID)
	}
	if err != nil {
		return core.Exam{}, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

func (s *SQLite) ListStudents(ctx context.Context, examID string) ([]core.Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.enrollment_number, s.display_name
		FROM students s
		JOIN exam_students es ON es.student_id = s.id
		WHERE es.exam_id = ?
		ORDER BY s.enrollment_number`, examID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	students := []core.Student{}
	for rows.Next() {
		var st core.Student
		if err := rows.Scan(&st.ID, &st.EnrollmentNumber, &st.DisplayName); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

const resultColumns = `id, exam_id, student_id, marks_obtained, percentage, remarks, status,
	examiner_id, submitted_at, updated_at`

func (s *SQLite) FindResult(ctx context.Context, examID, studentID string) (*core.ExamResult, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+resultColumns+" FROM exam_results WHERE exam_id = ? AND student_id = ?",
		examID, studentID)

	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLite) UpsertResult(ctx context.Context, w core.ResultWrite) (core.ExamResult, error) {
	at := w.At
	if at.IsZero() {
		at = time.Now()
	}

	var pct sql.NullFloat64
	if w.Percentage != nil {
		pct = sql.NullFloat64{Float64: *w.Percentage, Valid: true}
	}
	var remarks sql.NullString
	if w.Remarks != nil {
		remarks = sql.NullString{String: *w.Remarks, Valid: true}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO exam_results (
			id, exam_id, student_id, marks_obtained, percentage, remarks, status, examiner_id, submitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (exam_id, student_id) DO UPDATE SET
			marks_obtained = excluded.marks_obtained,
			percentage     = excluded.percentage,
			remarks        = excluded.remarks,
			status         = excluded.status,
			examiner_id    = excluded.examiner_id,
			updated_at     = excluded.submitted_at
		RETURNING `+resultColumns,
		uuid.NewString(), w.ExamID, w.StudentID, w.MarksObtained, pct, remarks,
		string(w.Status), w.ExaminerID, at.UTC().Format(timeLayout),
	)
	return scanResult(row)
}

func (s *SQLite) ListResults(ctx context.Context, examID string) ([]core.ExamResult, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+resultColumns+" FROM exam_results WHERE exam_id = ? ORDER BY submitted_at, id",
		examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []core.ExamResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLite) CountResults(ctx context.Context, examID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM exam_results WHERE exam_id = ?", examID).Scan(&n)
	return n, err
}

func (s *SQLite) CreateExam(ctx context.Context, title string, maxMarks int) (core.Exam, error) {
	e := core.Exam{ID: uuid.NewString(), Title: title, MaxMarks: maxMarks}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO exams (id, title, max_marks) VALUES (?, ?, ?)",
		e.ID, e.Title, e.MaxMarks,
	); err != nil {
		return core.Exam{}, fmt.Errorf("create exam: %w", err)
	}
	return e, nil
}

func (s *SQLite) AddStudent(ctx context.Context, examID, enrollmentNumber, displayName string) (core.Student, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Student{}, err
	}
	defer tx.Rollback()

	var st core.Student
	err = tx.QueryRowContext(ctx, `
		INSERT INTO students (id, enrollment_number, display_name)
		VALUES (?, ?, ?)
		ON CONFLICT (enrollment_number) DO UPDATE SET display_name = excluded.display_name
		RETURNING id, enrollment_number, display_name`,
		uuid.NewString(), enrollmentNumber, displayName,
	).Scan(&st.ID, &st.EnrollmentNumber, &st.DisplayName)
	if err != nil {
		return core.Student{}, fmt.Errorf("create student: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO exam_students (exam_id, student_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		examID, st.ID,
	); err != nil {
		return core.Student{}, fmt.Errorf("enroll student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Student{}, err
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (core.ExamResult, error) {
	var (
		r         core.ExamResult
		status    string
		pct       sql.NullFloat64
		remarks   sql.NullString
		submitted string
		updated   sql.NullString
	)
	if err := row.Scan(&r.ID, &r.ExamID, &r.StudentID, &r.MarksObtained, &pct, &remarks,
		&status, &r.ExaminerID, &submitted, &updated); err != nil {
		return core.ExamResult{}, err
	}

	r.Status = core.ResultStatus(status)
	if pct.Valid {
		v := pct.Float64
		r.Percentage = &v
	}
	if remarks.Valid {
		v := remarks.String
		r.Remarks = &v
	}

	t, err := time.Parse(timeLayout, submitted)
	if err != nil {
		return core.ExamResult{}, fmt.Errorf("parse submitted_at: %w", err)
	}
	r.SubmittedAt = t
	if updated.Valid {
		u, err := time.Parse(timeLayout, updated.String)
		if err != nil {
			return core.ExamResult{}, fmt.Errorf("parse updated_at: %w", err)
		}
		r.UpdatedAt = &u
	}
	return r, nil
}
