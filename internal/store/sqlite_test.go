package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/markupload/internal/core"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedExam creates an exam with max 100 and students S100 and S101.
func seedExam(t *testing.T, s *SQLite) (core.Exam, []core.Student) {
	t.Helper()
	ctx := context.Background()

	exam, err := s.CreateExam(ctx, "Midterm", 100)
	if err != nil {
		t.Fatalf("CreateExam() error = %v", err)
	}
	var students []core.Student
	for _, enr := range []string{"S100", "S101"} {
		st, err := s.AddStudent(ctx, exam.ID, enr, "Student "+enr)
		if err != nil {
			t.Fatalf("AddStudent(%s) error = %v", enr, err)
		}
		students = append(students, st)
	}
	return exam, students
}

func TestSQLite_Roster(t *testing.T) {
	s := openTestSQLite(t)
	exam, _ := seedExam(t, s)
	ctx := context.Background()

	got, err := s.GetExam(ctx, exam.ID)
	if err != nil {
		t.Fatalf("GetExam() error = %v", err)
	}
	if got != exam {
		t.Errorf("GetExam() = %+v, want %+v", got, exam)
	}

	students, err := s.ListStudents(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ListStudents() error = %v", err)
	}
	if len(students) != 2 || students[0].EnrollmentNumber != "S100" || students[1].EnrollmentNumber != "S101" {
		t.Errorf("ListStudents() = %+v", students)
	}

	_, err = s.GetExam(ctx, "missing")
	if !errors.Is(err, core.ErrExamNotFound) {
		t.Errorf("GetExam(missing) error = %v, want ErrExamNotFound", err)
	}
}

func TestSQLite_AddStudentIsIdempotent(t *testing.T) {
	s := openTestSQLite(t)
	exam, students := seedExam(t, s)

	again, err := s.AddStudent(context.Background(), exam.ID, "S100", "Renamed")
	if err != nil {
		t.Fatalf("AddStudent() error = %v", err)
	}
	if again.ID != students[0].ID {
		t.Errorf("AddStudent() id = %s, want existing %s", again.ID, students[0].ID)
	}
	if again.DisplayName != "Renamed" {
		t.Errorf("DisplayName = %q, want Renamed", again.DisplayName)
	}

	list, _ := s.ListStudents(context.Background(), exam.ID)
	if len(list) != 2 {
		t.Errorf("roster size = %d, want 2", len(list))
	}
}

func TestSQLite_UpsertResult(t *testing.T) {
	s := openTestSQLite(t)
	exam, students := seedExam(t, s)
	ctx := context.Background()

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	second := first.Add(time.Hour)
	remarks := "Good work"

	inserted, err := s.UpsertResult(ctx, core.ResultWrite{
		ExamID:        exam.ID,
		StudentID:     students[0].ID,
		MarksObtained: 85,
		Remarks:       &remarks,
		Status:        core.StatusGraded,
		ExaminerID:    "examiner-1",
		At:            first,
	})
	if err != nil {
		t.Fatalf("insert error = %v", err)
	}
	if inserted.UpdatedAt != nil {
		t.Errorf("insert UpdatedAt = %v, want nil", inserted.UpdatedAt)
	}
	if inserted.Percentage != nil {
		t.Errorf("insert Percentage = %v, want nil", *inserted.Percentage)
	}

	pct := 90.0
	updated, err := s.UpsertResult(ctx, core.ResultWrite{
		ExamID:        exam.ID,
		StudentID:     students[0].ID,
		MarksObtained: 90,
		Percentage:    &pct,
		Status:        core.StatusGraded,
		ExaminerID:    "examiner-2",
		At:            second,
	})
	if err != nil {
		t.Fatalf("update error = %v", err)
	}

	tests := []struct {
		name string
		ok   bool
	}{
		{"same id", updated.ID == inserted.ID},
		{"submitted_at kept", updated.SubmittedAt.Equal(first)},
		{"updated_at set", updated.UpdatedAt != nil && updated.UpdatedAt.Equal(second)},
		{"marks replaced", updated.MarksObtained == 90},
		{"examiner replaced", updated.ExaminerID == "examiner-2"},
		{"remarks cleared", updated.Remarks == nil},
		{"percentage stored", updated.Percentage != nil && *updated.Percentage == 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.ok {
				t.Errorf("updated = %+v", updated)
			}
		})
	}

	n, err := s.CountResults(ctx, exam.ID)
	if err != nil || n != 1 {
		t.Errorf("CountResults() = %d, %v; want 1", n, err)
	}

	found, err := s.FindResult(ctx, exam.ID, students[0].ID)
	if err != nil || found == nil || found.ID != inserted.ID {
		t.Errorf("FindResult() = %+v, %v", found, err)
	}
	missing, err := s.FindResult(ctx, exam.ID, students[1].ID)
	if err != nil || missing != nil {
		t.Errorf("FindResult(no result) = %+v, %v; want nil, nil", missing, err)
	}
}

func TestSQLite_ForeignKeyViolationIsReferenceError(t *testing.T) {
	s := openTestSQLite(t)
	exam, _ := seedExam(t, s)

	_, err := s.UpsertResult(context.Background(), core.ResultWrite{
		ExamID:        exam.ID,
		StudentID:     "no-such-student",
		MarksObtained: 10,
		Status:        core.StatusGraded,
		ExaminerID:    "examiner-1",
		At:            time.Now(),
	})
	if err == nil {
		t.Fatal("UpsertResult() with unknown student succeeded")
	}
	if got := core.ClassifyWriteError(err); !strings.HasPrefix(got, core.CategoryReference) {
		t.Errorf("ClassifyWriteError() = %q, want %q prefix", got, core.CategoryReference)
	}
}

func TestSQLite_ServiceUpload(t *testing.T) {
	s := openTestSQLite(t)
	exam, students := seedExam(t, s)
	ctx := context.Background()

	svc := core.NewService(s, s, core.ServiceOptions{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	data := []byte("enrollment_no,marks,remarks\n" +
		"S100,85,\"Good work\"\n" +
		"S101,110,\"Invalid\"\n" +
		"S999,70,\"\"\n")
	req := core.UploadRequest{
		FileName:   "marks.csv",
		Exam:       exam,
		Students:   students,
		ExaminerID: "examiner-1",
		Data:       data,
	}

	status, err := svc.UploadMarks(ctx, req)
	if err != nil {
		t.Fatalf("UploadMarks() error = %v", err)
	}
	if status.Total != 3 || status.Successful != 1 || status.Failed != 2 || status.Inserted != 1 {
		t.Errorf("status = %+v", status)
	}

	// Uploading the same file again updates in place.
	status, err = svc.UploadMarks(ctx, req)
	if err != nil {
		t.Fatalf("second UploadMarks() error = %v", err)
	}
	if status.Updated != 1 || status.Inserted != 0 {
		t.Errorf("second status = %+v, want 1 update", status)
	}

	n, _ := s.CountResults(ctx, exam.ID)
	if n != 1 {
		t.Errorf("CountResults() = %d, want 1", n)
	}

	results, err := svc.ExamResults(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ExamResults() error = %v", err)
	}
	if len(results) != 1 || results[0].MarksObtained != 85 || results[0].Remarks == nil || *results[0].Remarks != "Good work" {
		t.Errorf("results = %+v", results)
	}
}

func TestSQLite_RecordMarkStoresPercentage(t *testing.T) {
	s := openTestSQLite(t)
	exam, _ := seedExam(t, s)

	svc := core.NewService(s, s, core.ServiceOptions{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	got, err := svc.RecordMark(context.Background(), core.ManualEntry{
		ExamID:           exam.ID,
		EnrollmentNumber: "s101",
		Marks:            67,
		ExaminerID:       "examiner-1",
	})
	if err != nil {
		t.Fatalf("RecordMark() error = %v", err)
	}
	if got.Percentage == nil || *got.Percentage != 67 {
		t.Errorf("Percentage = %v, want 67", got.Percentage)
	}
}

func TestSQLite_ConcurrentUploadsKeepOneResult(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "marks.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	exam, students := seedExam(t, s)
	svc := core.NewService(s, s, core.ServiceOptions{
		MaxConcurrent: 8,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	const uploads = 8
	var wg sync.WaitGroup
	statuses := make([]core.UploadStatus, uploads)
	errs := make([]error, uploads)
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], errs[i] = svc.UploadMarks(context.Background(), core.UploadRequest{
				Exam:       exam,
				Students:   students,
				ExaminerID: "examiner-1",
				Data:       []byte("enrollment_no,marks\nS100,50\nS101,60\n"),
			})
		}(i)
	}
	wg.Wait()

	for i := range statuses {
		if errs[i] != nil {
			t.Fatalf("upload %d error = %v", i, errs[i])
		}
		if statuses[i].Successful != 2 || statuses[i].Failed != 0 {
			t.Errorf("upload %d status = %+v", i, statuses[i])
		}
	}

	n, err := s.CountResults(context.Background(), exam.ID)
	if err != nil {
		t.Fatalf("CountResults() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountResults() = %d, want 2", n)
	}
}
