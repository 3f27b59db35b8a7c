package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the application logger. Output goes to stderr so that CLI
// commands can print their reports on a clean stdout.
func New(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

// parseLevel maps a config level string to a slog level; anything
// unrecognized falls back to info rather than flooding stderr with debug.
func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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
