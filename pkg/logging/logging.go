// Package logging configures the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a textual log level to a slog.Level.
// Unknown values default to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// SetDefaultStructuredLogger installs a JSON slog handler as the default
// logger, tagged with the service name and version.
func SetDefaultStructuredLogger(name, version string) {
	SetDefaultStructuredLoggerWithLevel(name, version, os.Getenv("GLENS_LOG_LEVEL"))
}

// SetDefaultStructuredLoggerWithLevel installs a JSON slog handler at the
// given level as the default logger.
func SetDefaultStructuredLoggerWithLevel(name, version, level string) {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	logger := slog.New(handler).With(
		slog.String("service", name),
		slog.String("version", version),
	)
	slog.SetDefault(logger)
}
