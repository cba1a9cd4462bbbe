// Package logger wraps slog with the handful of structured log shapes the
// backend emits on hot paths.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger embeds slog.Logger so the usual Info/Warn/Error calls pass through.
type Logger struct {
	*slog.Logger
}

// New picks the handler by environment: readable text with debug level in
// development, JSON at info level everywhere else.
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

// AuthEvent logs authentication events
func (l *Logger) AuthEvent(event, email string, success bool, reason string) {
	if success {
		l.Info("auth_event",
			slog.String("event", event),
			slog.String("email", email),
			slog.Bool("success", success),
		)
	} else {
		l.Warn("auth_event",
			slog.String("event", event),
			slog.String("email", email),
			slog.Bool("success", success),
			slog.String("reason", reason),
		)
	}
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// AnalyticsRefresh logs the outcome of a dashboard analytics refresh cycle.
func (l *Logger) AnalyticsRefresh(duration time.Duration, err error) {
	if err != nil {
		l.Error("analytics_refresh",
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Info("analytics_refresh",
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
