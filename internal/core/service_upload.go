package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUploadNotFound is returned for unknown or expired upload ids.
var ErrUploadNotFound = errors.New("upload not found")

// ErrUploadCancelled is recorded on uploads stopped by CancelUpload.
var ErrUploadCancelled = errors.New("upload cancelled")

// ErrNotUploadOwner is returned when an examiner cancels someone else's upload.
var ErrNotUploadOwner = errors.New("upload belongs to another examiner")

type activeUpload struct {
	id         string
	examinerID string
	cancel     context.CancelFunc
	done       chan struct{}
	start      time.Time

	mu        sync.Mutex
	progress  UploadProgress
	result    *UploadResult
	listeners []chan UploadProgress
}

// StartUpload begins an asynchronous upload of a marks file for an exam.
// The exam and its students come from the Roster. The returned id is used
// with SubscribeProgress, GetUploadResult and CancelUpload.
//
// Returns ErrTooManyUploads if no upload slot frees up in time.
func (s *Service) StartUpload(ctx context.Context, examID, examinerID, fileName string, data []byte) (string, error) {
	exam, err := s.roster.GetExam(ctx, examID)
	if err != nil {
		return "", err
	}
	students, err := s.roster.ListStudents(ctx, exam.ID)
	if err != nil {
		return "", fmt.Errorf("list students: %w", err)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	uploadID := uuid.New().String()
	uploadCtx, cancel := context.WithTimeout(context.Background(), s.opts.UploadTimeout)

	upload := &activeUpload{
		id:         uploadID,
		examinerID: examinerID,
		cancel:     cancel,
		done:       make(chan struct{}),
		start:      time.Now(),
		progress: UploadProgress{
			UploadID: uploadID,
			ExamID:   exam.ID,
			FileName: fileName,
			Phase:    PhaseStarting,
		},
	}

	s.mu.Lock()
	s.uploads[uploadID] = upload
	s.mu.Unlock()

	req := UploadRequest{
		UploadID:   uploadID,
		FileName:   fileName,
		Exam:       exam,
		Students:   students,
		ExaminerID: examinerID,
		Data:       data,
	}

	go func() {
		defer s.limiter.Release()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in upload", "upload_id", uploadID, "exam_id", exam.ID, "panic", r)
				s.finish(upload, UploadStatus{}, fmt.Errorf("internal error: %v", r))
			}
		}()
		s.runUpload(uploadCtx, upload, req)
	}()

	return uploadID, nil
}

func (s *Service) runUpload(ctx context.Context, upload *activeUpload, req UploadRequest) {
	upload.setPhase(PhaseParsing)

	req.Progress = func(status UploadStatus) {
		upload.mu.Lock()
		upload.progress.Phase = PhaseProcessing
		upload.progress.Status = status
		upload.mu.Unlock()
		upload.notifyProgress()
	}

	status, err := s.UploadMarks(ctx, req)
	if err == nil && status.Cancelled {
		err = ctx.Err()
		if errors.Is(err, context.Canceled) {
			err = ErrUploadCancelled
		}
	}
	s.finish(upload, status, err)
}

// finish records the final state, wakes waiters and schedules removal.
func (s *Service) finish(upload *activeUpload, status UploadStatus, err error) {
	upload.mu.Lock()
	if upload.result != nil {
		upload.mu.Unlock()
		return
	}

	if status.Errors == nil {
		status.Errors = []string{}
	}
	upload.progress.Status = status
	switch {
	case errors.Is(err, ErrUploadCancelled):
		upload.progress.Phase = PhaseCancelled
		upload.progress.Error = err.Error()
	case err != nil:
		upload.progress.Phase = PhaseFailed
		upload.progress.Error = err.Error()
	default:
		upload.progress.Phase = PhaseComplete
	}

	upload.result = &UploadResult{
		UploadID: upload.id,
		ExamID:   upload.progress.ExamID,
		FileName: upload.progress.FileName,
		Status:   status,
		Duration: time.Since(upload.start),
		Error:    upload.progress.Error,
	}
	upload.mu.Unlock()

	upload.notifyProgress()
	upload.closeListeners()
	close(upload.done)
	s.cleanup(upload.id, s.opts.ResultRetention)
}

// SubscribeProgress returns a channel of progress updates. The current
// state is sent first; the channel is closed when the upload ends.
func (s *Service) SubscribeProgress(uploadID string) (<-chan UploadProgress, error) {
	upload, err := s.lookup(uploadID)
	if err != nil {
		return nil, err
	}

	ch := make(chan UploadProgress, 10)

	upload.mu.Lock()
	defer upload.mu.Unlock()

	ch <- upload.progress
	if upload.result != nil {
		close(ch)
		return ch, nil
	}
	upload.listeners = append(upload.listeners, ch)
	return ch, nil
}

// GetUploadProgress returns the current progress without blocking.
func (s *Service) GetUploadProgress(uploadID string) (UploadProgress, error) {
	upload, err := s.lookup(uploadID)
	if err != nil {
		return UploadProgress{}, err
	}
	upload.mu.Lock()
	defer upload.mu.Unlock()
	return upload.progress, nil
}

// GetUploadResult blocks until the upload ends or ctx is done.
func (s *Service) GetUploadResult(ctx context.Context, uploadID string) (*UploadResult, error) {
	upload, err := s.lookup(uploadID)
	if err != nil {
		return nil, err
	}

	select {
	case <-upload.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	upload.mu.Lock()
	defer upload.mu.Unlock()
	return upload.result, nil
}

// CancelUpload stops a running upload between rows. Rows already written
// stay written. Only the examiner who started the upload may cancel it;
// an empty examinerID skips the check and is reserved for admins.
func (s *Service) CancelUpload(uploadID, examinerID string) error {
	upload, err := s.lookup(uploadID)
	if err != nil {
		return err
	}
	if examinerID != "" && examinerID != upload.examinerID {
		return fmt.Errorf("%w: %s", ErrNotUploadOwner, uploadID)
	}
	upload.cancel()
	return nil
}

// WaitForUploads blocks until every running upload has finished.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) lookup(uploadID string) (*activeUpload, error) {
	s.mu.RLock()
	upload, ok := s.uploads[uploadID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUploadNotFound, uploadID)
	}
	return upload, nil
}

// cleanup forgets an upload after delay so late result requests still work.
func (s *Service) cleanup(uploadID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.uploads, uploadID)
		s.mu.Unlock()
	})
}

func (upload *activeUpload) setPhase(phase UploadPhase) {
	upload.mu.Lock()
	upload.progress.Phase = phase
	upload.mu.Unlock()
	upload.notifyProgress()
}

// notifyProgress sends the current progress to every listener. Slow
// listeners miss intermediate updates.
func (upload *activeUpload) notifyProgress() {
	upload.mu.Lock()
	defer upload.mu.Unlock()

	for _, ch := range upload.listeners {
		select {
		case ch <- upload.progress:
		default:
		}
	}
}

func (upload *activeUpload) closeListeners() {
	upload.mu.Lock()
	defer upload.mu.Unlock()

	for _, ch := range upload.listeners {
		close(ch)
	}
	upload.listeners = nil
}
