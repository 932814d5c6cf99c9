package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/markupload/internal/auth"
	"github.com/JonMunkholm/markupload/internal/core"
	"github.com/JonMunkholm/markupload/internal/logging"
	"github.com/JonMunkholm/markupload/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size for form framing.
const multipartOverhead = 1 << 20

// UploadResultResponse is the JSON form of a finished upload.
type UploadResultResponse struct {
	UploadID      string            `json:"upload_id"`
	ExamID        string            `json:"exam_id"`
	FileName      string            `json:"file_name"`
	Status        core.UploadStatus `json:"status"`
	Clean         bool              `json:"clean"`
	DisplayErrors []string          `json:"display_errors"`
	Duration      string            `json:"duration"`
	Error         string            `json:"error,omitempty"`
}

func (s *Server) toResponse(result *core.UploadResult) UploadResultResponse {
	return UploadResultResponse{
		UploadID:      result.UploadID,
		ExamID:        result.ExamID,
		FileName:      result.FileName,
		Status:        result.Status,
		Clean:         result.Error == "" && !result.Status.Cancelled && result.Status.Clean(),
		DisplayErrors: result.Status.DisplayErrors(s.cfg.Upload.ErrorDisplayLimit),
		Duration:      result.Duration.String(),
		Error:         result.Error,
	}
}

// handleUpload starts an asynchronous upload of a marks file and returns
// its id. Row results arrive through the progress stream and result
// endpoints.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	id, _ := auth.FromContext(r.Context())

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, fmt.Errorf("%w: limit %d bytes", errFileTooBig, maxSize), 0)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %w", errNoFile, err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, 0)
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		s.respondError(w, r, fmt.Errorf("%w: %d bytes, limit %d", errFileTooBig, header.Size, maxSize), 0)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusInternalServerError)
		return
	}

	uploadID, err := s.service.StartUpload(r.Context(), examID, id.UserID, header.Filename, data)
	if err != nil {
		if errors.Is(err, core.ErrTooManyUploads) {
			w.Header().Set("Retry-After", "30")
		}
		s.respondError(w, r, err, 0)
		return
	}

	logging.FromContext(r.Context()).Info("upload accepted",
		"upload_id", uploadID,
		"exam_id", examID,
		"examiner_id", id.UserID,
		"file", header.Filename,
		"bytes", len(data),
	)
	writeJSON(w, http.StatusAccepted, map[string]string{"upload_id": uploadID})
}

// handleUploadProgress streams upload progress as Server-Sent Events.
// The event id is the percent complete; clients reconnecting with
// Last-Event-ID (or ?lastEventId=) skip events they have already seen.
func (s *Server) handleUploadProgress(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")

	lastEventID := -1
	resume := r.Header.Get("Last-Event-ID")
	if resume == "" {
		resume = r.URL.Query().Get("lastEventId")
	}
	if resume != "" {
		if n, err := strconv.Atoi(resume); err == nil {
			lastEventID = n
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	progressCh, err := s.service.SubscribeProgress(uploadID)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				s.writeCompleteEvent(w, r, uploadID)
				flusher.Flush()
				return
			}

			percent := progress.Percent()
			if percent <= lastEventID && progress.Phase == core.PhaseProcessing {
				continue
			}
			lastEventID = percent

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", percent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeCompleteEvent(w http.ResponseWriter, r *http.Request, uploadID string) {
	result, err := s.service.GetUploadResult(r.Context(), uploadID)
	if err != nil || result == nil {
		fmt.Fprint(w, "event: complete\ndata: {}\n\n")
		return
	}
	data, _ := json.Marshal(s.toResponse(result))
	fmt.Fprintf(w, "event: complete\ndata: %s\n\n", data)
}

// handleUploadResult returns the final result of an upload. By default it
// waits for the upload to finish; with ?wait=false an unfinished upload
// answers 202 with its current progress.
func (s *Server) handleUploadResult(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")

	if r.URL.Query().Get("wait") == "false" {
		progress, err := s.service.GetUploadProgress(uploadID)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		if !terminal(progress.Phase) {
			writeJSON(w, http.StatusAccepted, progress)
			return
		}
	}

	result, err := s.service.GetUploadResult(r.Context(), uploadID)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if result == nil {
		s.respondError(w, r, core.ErrUploadNotFound, http.StatusNotFound)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.UploadSummary(templates.SummaryParams{
			FileName: result.FileName,
			Status:   result.Status,
			Errors:   result.Status.DisplayErrors(s.cfg.Upload.ErrorDisplayLimit),
			Error:    result.Error,
		}).Render(r.Context(), w)
		return
	}

	writeJSON(w, http.StatusOK, s.toResponse(result))
}

// handleCancelUpload stops an upload between rows. Admins may cancel any
// upload; other uploaders only their own.
func (s *Server) handleCancelUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")

	id, _ := auth.FromContext(r.Context())
	owner := id.UserID
	if id.HasRole("admin") {
		owner = ""
	}

	if err := s.service.CancelUpload(uploadID, owner); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "upload_id": uploadID})
}

// handleUploadQueueStatus reports upload slot usage.
func (s *Server) handleUploadQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Limiter().Status())
}

func terminal(phase core.UploadPhase) bool {
	switch phase {
	case core.PhaseComplete, core.PhaseFailed, core.PhaseCancelled:
		return true
	}
	return false
}
