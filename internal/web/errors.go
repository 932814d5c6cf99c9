package web

// errors.go maps service errors to HTTP responses. The technical error is
// logged with the request id; clients get core.MapError's message, action
// and code, as JSON or as an HTMX alert fragment.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/markupload/internal/core"
	"github.com/JonMunkholm/markupload/internal/logging"
	"github.com/JonMunkholm/markupload/internal/web/templates"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoFile      = errors.New("no file provided")
	errFileTooBig  = errors.New("file too large")
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// respondError logs err and writes the user-facing version of it.
// A zero status is derived from the error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	if status >= 500 {
		logger.Error("request error", "path", r.URL.Path, "status", status, "code", msg.Code, "error", err)
	} else {
		logger.Warn("request rejected", "path", r.URL.Path, "status", status, "code", msg.Code, "error", err)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
		return
	}

	resp := ErrorResponse{
		Error:   err.Error(),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	// Internal details stay in the log.
	if status >= 500 {
		resp.Error = msg.Message
	}
	writeJSON(w, status, resp)
}

func writeErrorJSON(w http.ResponseWriter, status int, msg core.UserMessage, detail string) {
	writeJSON(w, status, ErrorResponse{
		Error:   detail,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var (
		missing    *core.MissingColumnError
		validation *core.ValidationError
		outOfRange *core.OutOfRangeError
		invalid    *core.InvalidMarksError
		notFound   *core.StudentNotFoundError
	)

	switch {
	case errors.Is(err, core.ErrExamNotFound), errors.Is(err, core.ErrUploadNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotUploadOwner):
		return http.StatusForbidden
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, errFileTooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrEmptyFile), errors.Is(err, core.ErrInvalidCSV), errors.Is(err, errNoFile), errors.As(err, &missing):
		return http.StatusBadRequest
	case errors.As(err, &validation), errors.As(err, &outOfRange), errors.As(err, &invalid), errors.As(err, &notFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
