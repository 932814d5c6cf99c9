package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func runFile(t *testing.T, store ResultStore, students []Student, data string) UploadStatus {
	t.Helper()
	rows, _, err := ParseMarksCSV([]byte(data), ParseOptions{})
	if err != nil {
		t.Fatalf("ParseMarksCSV() error = %v", err)
	}
	exec := &Executor{
		Store:      store,
		Exam:       testExam,
		Matcher:    NewStudentMatcher(students),
		ExaminerID: "examiner-1",
	}
	return exec.Run(context.Background(), rows)
}

func TestExecutor_SampleScenario(t *testing.T) {
	store := newMemStore()
	status := runFile(t, store, testStudents, sampleScenario)

	if status.Total != 3 || status.Processed != 3 || status.Successful != 1 || status.Failed != 2 {
		t.Fatalf("status = %+v, want total=3 processed=3 successful=1 failed=2", status)
	}

	wantErrors := []string{
		"Row 3 (S101): marks 110 out of range (0-100)",
		"Row 4 (S999): student not found: S999",
	}
	if strings.Join(status.Errors, "\n") != strings.Join(wantErrors, "\n") {
		t.Errorf("Errors = %q, want %q", status.Errors, wantErrors)
	}

	r, _ := store.FindResult(context.Background(), testExam.ID, "stu-100")
	if r == nil {
		t.Fatal("S100 result was not written")
	}
	if r.MarksObtained != 85 || r.Status != StatusGraded || r.ExaminerID != "examiner-1" {
		t.Errorf("result = %+v", r)
	}
	if r.Remarks == nil || *r.Remarks != "Good work" {
		t.Errorf("Remarks = %v, want Good work", r.Remarks)
	}
	if r.Percentage != nil {
		t.Errorf("Percentage = %v, want nil on the CSV path", *r.Percentage)
	}
	if got := r.PercentageOf(testExam.MaxMarks); got != 85 {
		t.Errorf("PercentageOf() = %v, want 85", got)
	}

	if res, _ := store.FindResult(context.Background(), testExam.ID, "stu-101"); res != nil {
		t.Error("out-of-range row must not be written")
	}
	if status.Clean() {
		t.Error("batch with failures must not be clean")
	}
}

func TestExecutor_BestEffort(t *testing.T) {
	var students []Student
	var b strings.Builder
	b.WriteString("enrollment_no,marks\n")
	for i := 1; i <= 10; i++ {
		students = append(students, Student{ID: fmt.Sprintf("id-%d", i), EnrollmentNumber: fmt.Sprintf("E%02d", i)})
		fmt.Fprintf(&b, "E%02d,%d\n", i, i*5)
		if i == 3 || i == 7 {
			fmt.Fprintf(&b, "X%02d,50\n", i)
		}
	}

	store := newMemStore()
	status := runFile(t, store, students, b.String())

	if status.Total != 12 || status.Processed != 12 || status.Successful != 10 || status.Failed != 2 {
		t.Fatalf("status = %+v, want total=12 processed=12 successful=10 failed=2", status)
	}
	results, _ := store.ListResults(context.Background(), testExam.ID)
	if len(results) != 10 {
		t.Errorf("committed %d results, want 10", len(results))
	}
}

func TestExecutor_RerunUpdatesInsteadOfDuplicating(t *testing.T) {
	store := newMemStore()
	data := "enrollment_no,marks\nS100,50\nS101,60\n"

	first := runFile(t, store, testStudents, data)
	before, _ := store.ListResults(context.Background(), testExam.ID)

	second := runFile(t, store, testStudents, data)
	after, _ := store.ListResults(context.Background(), testExam.ID)

	if first.Inserted != 2 || first.Updated != 0 {
		t.Errorf("first run inserted/updated = %d/%d, want 2/0", first.Inserted, first.Updated)
	}
	if second.Inserted != 0 || second.Updated != 2 {
		t.Errorf("second run inserted/updated = %d/%d, want 0/2", second.Inserted, second.Updated)
	}
	if len(before) != len(after) {
		t.Errorf("row count changed from %d to %d", len(before), len(after))
	}
	for _, r := range after {
		if r.UpdatedAt == nil {
			t.Errorf("result %s has no updated_at after the second run", r.ID)
		}
	}
}

func TestExecutor_WriteErrors(t *testing.T) {
	store := newMemStore()
	store.failFor["stu-100"] = &pgconn.PgError{Code: "23503", Message: "insert or update violates foreign key constraint"}
	store.failFor["stu-101"] = errors.New("network is unreachable")

	status := runFile(t, store, testStudents, "enrollment_no,marks\nS100,10\nS101,20\n")

	if status.Failed != 2 {
		t.Fatalf("Failed = %d, want 2", status.Failed)
	}
	if !strings.HasPrefix(status.Errors[0], "Row 2 (S100): reference error") {
		t.Errorf("Errors[0] = %q", status.Errors[0])
	}
	if status.Errors[1] != "Row 3 (S101): network is unreachable" {
		t.Errorf("Errors[1] = %q", status.Errors[1])
	}
}

func TestExecutor_RecoversPanics(t *testing.T) {
	store := newMemStore()
	store.panicFor["stu-100"] = true

	status := runFile(t, store, testStudents, "enrollment_no,marks\nS100,10\nS101,20\n")

	if status.Processed != 2 || status.Failed != 1 || status.Successful != 1 {
		t.Fatalf("status = %+v", status)
	}
	if status.Errors[0] != "Row 2 (S100): unexpected error" {
		t.Errorf("Errors[0] = %q", status.Errors[0])
	}
}

func TestExecutor_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := newMemStore()
	store.onUpsert = func(ResultWrite) { cancel() }

	rows, _, _ := ParseMarksCSV([]byte("enrollment_no,marks\nS100,10\nS101,20\n"), ParseOptions{})
	exec := &Executor{Store: store, Exam: testExam, Matcher: NewStudentMatcher(testStudents), ExaminerID: "u"}
	status := exec.Run(ctx, rows)

	if !status.Cancelled {
		t.Error("Cancelled = false, want true")
	}
	if status.Processed != 1 || status.Successful != 1 {
		t.Errorf("status = %+v, want one processed row", status)
	}
}

func TestExecutor_ProgressAndPercentage(t *testing.T) {
	store := newMemStore()
	var snapshots []UploadStatus
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	rows, _, _ := ParseMarksCSV([]byte(sampleScenario), ParseOptions{})
	exec := &Executor{
		Store:           store,
		Exam:            testExam,
		Matcher:         NewStudentMatcher(testStudents),
		ExaminerID:      "u",
		StorePercentage: true,
		Now:             func() time.Time { return fixed },
		Progress:        func(s UploadStatus) { snapshots = append(snapshots, s) },
	}
	exec.Run(context.Background(), rows)

	if len(snapshots) != 3 {
		t.Fatalf("got %d progress callbacks, want 3", len(snapshots))
	}
	for i, s := range snapshots {
		if s.Processed != i+1 {
			t.Errorf("snapshot %d Processed = %d", i, s.Processed)
		}
	}
	if len(snapshots[1].Errors) != 1 || len(snapshots[2].Errors) != 2 {
		t.Error("snapshots should carry the errors accumulated so far")
	}

	r, _ := store.FindResult(context.Background(), testExam.ID, "stu-100")
	if r.Percentage == nil || *r.Percentage != 85 {
		t.Errorf("Percentage = %v, want 85", r.Percentage)
	}
	if !r.SubmittedAt.Equal(fixed) {
		t.Errorf("SubmittedAt = %v, want %v", r.SubmittedAt, fixed)
	}
}

func TestUploadStatus_DisplayErrors(t *testing.T) {
	s := UploadStatus{Errors: []string{"a", "b", "c", "d"}}

	got := s.DisplayErrors(2)
	want := []string{"a", "b", "... and 2 more errors"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("DisplayErrors(2) = %q, want %q", got, want)
	}
	if len(s.Errors) != 4 {
		t.Error("DisplayErrors must not truncate the full list")
	}
	if got := s.DisplayErrors(10); len(got) != 4 {
		t.Errorf("DisplayErrors(10) = %q", got)
	}
}

func TestUploadStatus_Clean(t *testing.T) {
	tests := []struct {
		status UploadStatus
		want   bool
	}{
		{UploadStatus{Successful: 3}, true},
		{UploadStatus{Successful: 3, Failed: 1}, false},
		{UploadStatus{}, false},
	}
	for _, tt := range tests {
		if got := tt.status.Clean(); got != tt.want {
			t.Errorf("%+v.Clean() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		marks, max int
		want       float64
	}{
		{85, 100, 85},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{0, 50, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := Percentage(tt.marks, tt.max); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %v, want %v", tt.marks, tt.max, got, tt.want)
		}
	}
}
