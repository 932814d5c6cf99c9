package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrExamNotFound is returned by a Roster when the exam does not exist.
var ErrExamNotFound = errors.New("exam not found")

// Publisher announces a fully clean batch to downstream consumers.
type Publisher interface {
	PublishResults(ctx context.Context, event ResultsPublished) error
}

// Archiver keeps a copy of every uploaded file.
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte) error
}

// ResultsPublished is emitted after a clean batch.
type ResultsPublished struct {
	UploadID    string    `json:"upload_id"`
	ExamID      string    `json:"exam_id"`
	ExaminerID  string    `json:"examiner_id"`
	FileName    string    `json:"file_name,omitempty"`
	Successful  int       `json:"successful"`
	Inserted    int       `json:"inserted"`
	Updated     int       `json:"updated"`
	PublishedAt time.Time `json:"published_at"`
}

// UploadRequest is the input to a synchronous upload.
type UploadRequest struct {
	UploadID   string    `json:"upload_id"` // generated when empty
	FileName   string    `json:"file_name"`
	Exam       Exam      `json:"exam"`
	Students   []Student `json:"students"` // invalid entries are skipped
	ExaminerID string    `json:"examiner_id" validate:"notblank"`
	Data       []byte    `json:"-"`

	Progress ProgressFunc `json:"-"`
}

// ManualEntry records the marks of a single student.
type ManualEntry struct {
	ExamID           string  `json:"exam_id" validate:"required"`
	EnrollmentNumber string  `json:"enrollment_no" validate:"notblank"`
	Marks            int     `json:"marks"`
	Remarks          *string `json:"remarks,omitempty"`
	ExaminerID       string  `json:"examiner_id" validate:"notblank"`
}

// ServiceOptions tunes a Service. Zero values use the defaults.
type ServiceOptions struct {
	MaxConcurrent   int
	MaxWait         time.Duration
	UploadTimeout   time.Duration
	ResultRetention time.Duration
	LenientMarks    bool

	Publisher     Publisher // optional
	Archiver      Archiver  // optional
	ArchivePrefix string

	Logger *slog.Logger
	Now    func() time.Time
}

const (
	defaultUploadTimeout   = 5 * time.Minute
	defaultResultRetention = 5 * time.Minute
	publishTimeout         = 10 * time.Second
	archiveTimeout         = 30 * time.Second
)

// Service runs mark uploads and manual entries against a result store.
type Service struct {
	store   ResultStore
	roster  Roster
	limiter *UploadLimiter
	opts    ServiceOptions
	logger  *slog.Logger

	mu      sync.RWMutex
	uploads map[string]*activeUpload
}

// NewService creates a Service over store and roster.
func NewService(store ResultStore, roster Roster, opts ServiceOptions) *Service {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = defaultUploadTimeout
	}
	if opts.ResultRetention <= 0 {
		opts.ResultRetention = defaultResultRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:   store,
		roster:  roster,
		limiter: NewUploadLimiter(opts.MaxConcurrent, opts.MaxWait),
		opts:    opts,
		logger:  logger,
		uploads: make(map[string]*activeUpload),
	}
}

// Limiter exposes the upload limiter for health reporting.
func (s *Service) Limiter() *UploadLimiter {
	return s.limiter
}

// UploadMarks parses a marks file and applies every row to the store.
//
// A non-nil error means the file was rejected as a whole and nothing was
// written. Row failures are reported in the returned status instead.
func (s *Service) UploadMarks(ctx context.Context, req UploadRequest) (UploadStatus, error) {
	if err := ValidateStruct(req); err != nil {
		return UploadStatus{}, err
	}
	if req.UploadID == "" {
		req.UploadID = uuid.New().String()
	}

	logger := s.logger.With("upload_id", req.UploadID, "exam_id", req.Exam.ID)
	students := usableStudents(logger, req.Students)

	s.archive(ctx, logger, req)

	rows, stats, err := ParseMarksCSV(req.Data, ParseOptions{LenientMarks: s.opts.LenientMarks})
	if err != nil {
		logger.Warn("marks file rejected", "file", req.FileName, "error", err)
		return UploadStatus{}, err
	}
	logger.Debug("marks file parsed", "rows", stats.Emitted, "skipped", stats.Skipped)

	exec := &Executor{
		Store:      s.store,
		Exam:       req.Exam,
		Matcher:    NewStudentMatcher(students),
		ExaminerID: req.ExaminerID,
		Now:        s.opts.Now,
		Progress:   req.Progress,
		Logger:     logger,
	}
	status := exec.Run(ctx, rows)

	logger.Info("marks upload finished",
		"total", status.Total,
		"successful", status.Successful,
		"failed", status.Failed,
		"inserted", status.Inserted,
		"updated", status.Updated,
		"cancelled", status.Cancelled,
	)

	if status.Clean() && !status.Cancelled {
		s.publish(ctx, logger, ResultsPublished{
			UploadID:    req.UploadID,
			ExamID:      req.Exam.ID,
			ExaminerID:  req.ExaminerID,
			FileName:    req.FileName,
			Successful:  status.Successful,
			Inserted:    status.Inserted,
			Updated:     status.Updated,
			PublishedAt: s.opts.Now(),
		})
	}

	return status, nil
}

// usableStudents drops roster entries that can never match a row, such as
// a blank enrollment number. A bad roster entry is not a file-level error.
func usableStudents(logger *slog.Logger, students []Student) []Student {
	out := make([]Student, 0, len(students))
	for _, st := range students {
		if err := ValidateStruct(st); err != nil {
			logger.Warn("roster entry skipped", "student_id", st.ID, "error", err)
			continue
		}
		out = append(out, st)
	}
	return out
}

// RecordMark writes one student's marks and stores the percentage.
func (s *Service) RecordMark(ctx context.Context, entry ManualEntry) (ExamResult, error) {
	if err := ValidateStruct(entry); err != nil {
		return ExamResult{}, err
	}

	exam, err := s.roster.GetExam(ctx, entry.ExamID)
	if err != nil {
		return ExamResult{}, fmt.Errorf("get exam: %w", err)
	}
	if err := ValidateMarks(entry.EnrollmentNumber, entry.Marks, exam.MaxMarks); err != nil {
		return ExamResult{}, err
	}

	students, err := s.roster.ListStudents(ctx, exam.ID)
	if err != nil {
		return ExamResult{}, fmt.Errorf("list students: %w", err)
	}
	student, err := NewStudentMatcher(usableStudents(s.logger, students)).Match(entry.EnrollmentNumber)
	if err != nil {
		return ExamResult{}, err
	}

	row := CsvRow{
		EnrollmentNumber: entry.EnrollmentNumber,
		Marks:            entry.Marks,
		MarksValid:       true,
		Remarks:          entry.Remarks,
	}
	plan, err := PlanWrite(ctx, s.store, exam, student, row, entry.ExaminerID, s.opts.Now())
	if err != nil {
		return ExamResult{}, err
	}
	pct := Percentage(entry.Marks, exam.MaxMarks)
	plan.Write.Percentage = &pct

	result, err := s.store.UpsertResult(ctx, plan.Write)
	if err != nil {
		return ExamResult{}, fmt.Errorf("save result: %w", err)
	}

	s.logger.Info("mark recorded",
		"exam_id", exam.ID,
		"student_id", student.ID,
		"op", plan.Op,
	)
	return result, nil
}

// ExamResults lists the stored results of an exam.
func (s *Service) ExamResults(ctx context.Context, examID string) ([]ExamResult, error) {
	results, err := s.store.ListResults(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// Exam returns the exam with the given id.
func (s *Service) Exam(ctx context.Context, examID string) (Exam, error) {
	return s.roster.GetExam(ctx, examID)
}

// SampleCSVFor builds the template file for an exam's roster.
func (s *Service) SampleCSVFor(ctx context.Context, examID string) ([]byte, error) {
	exam, err := s.roster.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	students, err := s.roster.ListStudents(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return SampleCSV(students, exam.MaxMarks), nil
}

// publish sends the event on a context detached from the upload's, which
// may already be near its deadline. Failures are logged.
func (s *Service) publish(ctx context.Context, logger *slog.Logger, event ResultsPublished) {
	if s.opts.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.opts.Publisher.PublishResults(ctx, event); err != nil {
		logger.Error("publish results failed", "error", err)
	}
}

// archive stores the raw file under <prefix>/<examID>/<uploadID>.csv.
// Failures are logged and never fail the upload.
func (s *Service) archive(ctx context.Context, logger *slog.Logger, req UploadRequest) {
	if s.opts.Archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	key := ArchiveKey(s.opts.ArchivePrefix, req.Exam.ID, req.UploadID)
	if err := s.opts.Archiver.Archive(ctx, key, req.Data); err != nil {
		logger.Error("archive upload failed", "key", key, "error", err)
	}
}

// ArchiveKey returns the object key for an uploaded file.
func ArchiveKey(prefix, examID, uploadID string) string {
	return path.Join(prefix, examID, uploadID+".csv")
}
