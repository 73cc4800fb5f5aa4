// Package logger provides structured logging infrastructure for the SDK.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// SessionIDKey is the context key for a call session ID
	SessionIDKey contextKey = "session_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and session_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("request_id", requestID)),
		}
	}

	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok && sessionID != "" {
		newLogger = newLogger.WithSessionID(sessionID)
	}

	return newLogger
}

// WithSessionID returns a logger bound to a call session ID
func (l *Logger) WithSessionID(sessionID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("session_id", sessionID)),
	}
}

// CallEvent logs a call lifecycle event
func (l *Logger) CallEvent(event, sessionID, telephonyStatus string) {
	l.Info("call_event",
		slog.String("event", event),
		slog.String("session_id", sessionID),
		slog.String("telephony_status", telephonyStatus),
	)
}

// ModuleTransition logs a module lifecycle transition
func (l *Logger) ModuleTransition(module, from, to string) {
	l.Info("module_transition",
		slog.String("module", module),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// DependencyNotReady logs a collaborator readiness loss
func (l *Logger) DependencyNotReady(module, dependency string) {
	l.Warn("dependency_not_ready",
		slog.String("module", module),
		slog.String("dependency", dependency),
	)
}

// StorageError logs storage errors
func (l *Logger) StorageError(operation string, err error) {
	l.Error("storage_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// HTTPRequest logs an HTTP request on the observer surface
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// PresencePoll logs the outcome of a presence poll
func (l *Logger) PresencePoll(calls int, err error) {
	if err != nil {
		l.Warn("presence_poll",
			slog.String("error", err.Error()),
		)
		return
	}
	l.Debug("presence_poll",
		slog.Int("calls", calls),
	)
}
