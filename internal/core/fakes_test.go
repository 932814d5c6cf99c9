package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// memStore is an in-memory ResultStore keyed by (exam, student).
type memStore struct {
	mu      sync.Mutex
	results map[string]ExamResult
	seq     int

	// failFor makes UpsertResult fail for the given student id.
	failFor map[string]error
	// panicFor makes UpsertResult panic for the given student id.
	panicFor map[string]bool
	// onUpsert runs after every successful write.
	onUpsert func(ResultWrite)
}

func newMemStore() *memStore {
	return &memStore{
		results:  make(map[string]ExamResult),
		failFor:  make(map[string]error),
		panicFor: make(map[string]bool),
	}
}

func resultKey(examID, studentID string) string { return examID + "|" + studentID }

func (m *memStore) FindResult(_ context.Context, examID, studentID string) (*ExamResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[resultKey(examID, studentID)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStore) UpsertResult(_ context.Context, w ResultWrite) (ExamResult, error) {
	if m.panicFor[w.StudentID] {
		panic("store exploded")
	}
	if err := m.failFor[w.StudentID]; err != nil {
		return ExamResult{}, err
	}

	m.mu.Lock()
	key := resultKey(w.ExamID, w.StudentID)
	r, ok := m.results[key]
	if ok {
		at := w.At
		r.UpdatedAt = &at
	} else {
		m.seq++
		r = ExamResult{
			ID:          fmt.Sprintf("r-%d", m.seq),
			ExamID:      w.ExamID,
			StudentID:   w.StudentID,
			SubmittedAt: w.At,
		}
	}
	r.MarksObtained = w.MarksObtained
	r.Percentage = w.Percentage
	r.Remarks = w.Remarks
	r.Status = w.Status
	r.ExaminerID = w.ExaminerID
	m.results[key] = r
	m.mu.Unlock()

	if m.onUpsert != nil {
		m.onUpsert(w)
	}
	return r, nil
}

func (m *memStore) ListResults(_ context.Context, examID string) ([]ExamResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ExamResult
	for _, r := range m.results {
		if r.ExamID == examID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memRoster serves fixed exams and students.
type memRoster struct {
	exams    map[string]Exam
	students map[string][]Student
}

func (r *memRoster) GetExam(_ context.Context, examID string) (Exam, error) {
	e, ok := r.exams[examID]
	if !ok {
		return Exam{}, fmt.Errorf("%w: %s", ErrExamNotFound, examID)
	}
	return e, nil
}

func (r *memRoster) ListStudents(_ context.Context, examID string) ([]Student, error) {
	return r.students[examID], nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []ResultsPublished
}

func (p *recordingPublisher) PublishResults(_ context.Context, e ResultsPublished) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// recordingArchiver captures archived files by key.
type recordingArchiver struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func (a *recordingArchiver) Archive(_ context.Context, key string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.files == nil {
		a.files = make(map[string][]byte)
	}
	a.files[key] = data
	return a.err
}

var (
	testExam     = Exam{ID: "exam-1", Title: "Midterm", MaxMarks: 100}
	testStudents = []Student{
		{ID: "stu-100", EnrollmentNumber: "S100", DisplayName: "Ada"},
		{ID: "stu-101", EnrollmentNumber: "S101", DisplayName: "Grace"},
	}
)

const sampleScenario = "enrollment_no,marks,remarks\n" +
	"S100,85,\"Good work\"\n" +
	"S101,110,\"Invalid\"\n" +
	"S999,70,\"\"\n"
