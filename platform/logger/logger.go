// Package logger wraps log/slog with the handler choice and the few
// structured helpers the service logs through.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey holds the X-Request-ID of the HTTP request being served.
	RequestIDKey contextKey = "request_id"
	// TaskIDKey holds the asynq task id of the job being processed.
	TaskIDKey contextKey = "task_id"
)

type Logger struct {
	*slog.Logger
}

// New logs to stdout: text at debug level in development, JSON at info
// everywhere else.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

func NewWithWriter(env string, w io.Writer) *Logger {
	if strings.EqualFold(env, "development") {
		return &Logger{slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

// Nop discards everything. Services fall back to it when no logger is wired.
func Nop() *Logger {
	return NewWithWriter("production", io.Discard)
}

// WithContext tags the logger with the request or task id carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	var attrs []any
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if id, ok := ctx.Value(TaskIDKey).(string); ok && id != "" {
		attrs = append(attrs, slog.String("task_id", id))
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{l.With(attrs...)}
}

func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// ProviderError records a failed call to an outside messaging provider.
// It is a warning: the attempt is already on the lead's timeline.
func (l *Logger) ProviderError(provider, operation string, err error) {
	l.Warn("provider_error",
		slog.String("provider", provider),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
