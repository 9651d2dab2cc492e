// Package logger provides structured logging infrastructure for the application.
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
	// CallIDKey is the context key for the voice call identifier
	CallIDKey contextKey = "call_id"
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
// Supports request_id and call_id from context.
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

	if callID, ok := ctx.Value(CallIDKey).(string); ok && callID != "" {
		newLogger = newLogger.WithCallID(callID)
	}

	return newLogger
}

// WithCallID returns a logger scoped to a voice call.
func (l *Logger) WithCallID(callID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("call_id", callID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// ToolCall logs an inbound agent tool invocation.
func (l *Logger) ToolCall(tool, callID string, success bool) {
	l.Info("tool_call",
		slog.String("tool", tool),
		slog.String("call_id", callID),
		slog.Bool("success", success),
	)
}

// WebhookEvent logs a lifecycle webhook event and whether it was processed.
func (l *Logger) WebhookEvent(event, callID string, processed bool) {
	l.Info("webhook_event",
		slog.String("event", event),
		slog.String("call_id", callID),
		slog.Bool("processed", processed),
	)
}

// SyncFailure logs a failed dashboard delivery after retry exhaustion.
func (l *Logger) SyncFailure(callID, endpoint string, attempts int, err error) {
	cause := ""
	if err != nil {
		cause = err.Error()
	}
	l.Error("dashboard_sync_failed",
		slog.String("call_id", callID),
		slog.String("endpoint", endpoint),
		slog.Int("attempts", attempts),
		slog.String("error", cause),
	)
}

// StoreError logs session store errors
func (l *Logger) StoreError(operation string, err error) {
	l.Error("session_store_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
