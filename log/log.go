// Package log provides structured logging for the emulator. It wraps Go's
// log/slog with per-module child loggers and a process-wide default.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with module context.
type Logger struct {
	inner *slog.Logger
}

// defaultLogger is the process-wide logger returned by Default.
var defaultLogger *Logger

func init() {
	defaultLogger = New(slog.LevelInfo)
}

// New creates a Logger that writes JSON to stderr at the given level.
func New(level slog.Level) *Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{inner: slog.New(h)}
}

// NewWithFormat creates a Logger that writes to w in the given format
// ("json" or "text").
func NewWithFormat(w io.Writer, level slog.Level, format string) (*Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "json", "":
		return NewWithHandler(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return NewWithHandler(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("log: unknown format %q", format)
}

// NewWithHandler creates a Logger backed by the supplied slog.Handler. This
// is useful for testing or for writing to a custom destination.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// ParseLevel parses a level name. The match is case-insensitive.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log: unknown level %q", s)
}

// VerbosityToLevel maps the numeric --verbosity scale to a level: 0 and 1
// are error, 2 warn, 3 info, and 4 or more debug.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v <= 1:
		return slog.LevelError
	case v == 2:
		return slog.LevelWarn
	case v == 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Default returns the current package-level default logger.
func Default() *Logger {
	return defaultLogger
}

// Module returns a child logger with an additional "module" attribute. This
// is the primary way subsystems (cpu, loader, ...) obtain their own
// contextual logger.
func (l *Logger) Module(name string) *Logger {
	return &Logger{inner: l.inner.With("module", name)}
}

// With returns a child logger with additional key-value context.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}

// Enabled reports whether l emits records at level.
func (l *Logger) Enabled(level slog.Level) bool {
	return l.inner.Enabled(context.Background(), level)
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }

// Info logs at LevelInfo.
func (l *Logger) Info(msg string, args ...any) { l.inner.Info(msg, args...) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(msg string, args ...any) { l.inner.Warn(msg, args...) }

// Error logs at LevelError.
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }
