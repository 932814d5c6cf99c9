package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/markupload/internal/auth"
	"github.com/JonMunkholm/markupload/internal/core"
	"github.com/JonMunkholm/markupload/internal/logging"
)

const maxManualEntryBody = 64 << 10

// manualEntryRequest is the body of a manual mark entry. The exam comes
// from the URL and the examiner from the token.
type manualEntryRequest struct {
	EnrollmentNumber string  `json:"enrollment_no"`
	Marks            int     `json:"marks"`
	Remarks          *string `json:"remarks,omitempty"`
}

// ResultResponse adds the effective percentage to a stored result.
type ResultResponse struct {
	core.ExamResult
	EffectivePercentage float64 `json:"effective_percentage"`
}

// ExamResultsResponse lists an exam's results.
type ExamResultsResponse struct {
	Exam    core.Exam        `json:"exam"`
	Count   int              `json:"count"`
	Results []ResultResponse `json:"results"`
}

func (s *Server) handleRecordMark(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	id, _ := auth.FromContext(r.Context())

	var req manualEntryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxManualEntryBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, &core.ValidationError{
			Fields: map[string]string{"body": "invalid request body: " + err.Error()},
		}, http.StatusBadRequest)
		return
	}

	result, err := s.service.RecordMark(r.Context(), core.ManualEntry{
		ExamID:           examID,
		EnrollmentNumber: req.EnrollmentNumber,
		Marks:            req.Marks,
		Remarks:          req.Remarks,
		ExaminerID:       id.UserID,
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	logging.FromContext(r.Context()).Info("manual mark recorded",
		"exam_id", examID,
		"student_id", result.StudentID,
		"examiner_id", id.UserID,
	)

	pct := 0.0
	if result.Percentage != nil {
		pct = *result.Percentage
	}
	writeJSON(w, http.StatusOK, ResultResponse{ExamResult: result, EffectivePercentage: pct})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")

	exam, err := s.service.Exam(r.Context(), examID)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	results, err := s.service.ExamResults(r.Context(), exam.ID)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	resp := ExamResultsResponse{
		Exam:    exam,
		Count:   len(results),
		Results: make([]ResultResponse, 0, len(results)),
	}
	for _, res := range results {
		resp.Results = append(resp.Results, ResultResponse{
			ExamResult:          res,
			EffectivePercentage: res.PercentageOf(exam.MaxMarks),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSampleCSV downloads a template file prefilled with the exam's roster.
func (s *Server) handleSampleCSV(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")

	data, err := s.service.SampleCSVFor(r.Context(), examID)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="marks_%s_sample.csv"`, examID))
	w.Write(data)
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status   string                   `json:"status"`
	Database string                   `json:"database"`
	Uploads  core.UploadLimiterStatus `json:"uploads"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Database: "unchecked",
		Uploads:  s.service.Limiter().Status(),
	}
	status := http.StatusOK

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Error("health check: database unreachable", "error", err)
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	writeJSON(w, status, resp)
}
