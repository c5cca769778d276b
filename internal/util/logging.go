package util

import (
	"io"
	"log/slog"
	"os"
)

// InitLogger configures the global slog logger: JSON output on stdout,
// the given level, and a service attribute on every record so the api
// and worker binaries are distinguishable in aggregated logs.
func InitLogger(service, level string) *slog.Logger {
	logger := NewLogger(os.Stdout, service, level)
	slog.SetDefault(logger)
	return logger
}

// NewLogger builds the JSON logger without installing it globally.
// Accepts levels: debug, info, warn, error. Defaults to info on
// unknown input.
func NewLogger(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	})
	logger := slog.New(handler)
	if service != "" {
		logger = logger.With("service", service)
	}
	return logger
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
