// Package logging configures log/slog for the service.
//
// Loggers travel in the request context: the HTTP layer attaches one
// carrying the chi request ID, and upload goroutines keep using it after
// the request has returned, so their entries stay correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// redactedKeys never reach the output with their value.
var redactedKeys = map[string]bool{
	"authorization": true,
	"token":         true,
	"secret":        true,
	"password":      true,
	"database_url":  true,
}

type ctxKey struct{}

// Setup installs the process-wide logger. Level is debug, info, warn or
// error; format is text or json. Unknown values fall back to info and text.
func Setup(level, format string) *slog.Logger {
	logger := New(os.Stdout, level, format)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: redact,
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "warning":
		return slog.LevelWarn
	default:
		if err := l.UnmarshalText([]byte(level)); err != nil {
			return slog.LevelInfo
		}
	}
	return l
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if redactedKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or the default logger
// tagged with the chi request ID when there is one.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithFields is FromContext plus extra attributes:
//
//	logging.WithFields(ctx, "upload_id", id, "exam_id", examID).Info("upload started")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
