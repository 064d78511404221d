// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a logger writing to w. When reportOnStdout is true it logs JSON,
// so a consumer piping stdout and stderr together can still split them;
// otherwise it logs human-readable text.
func New(w io.Writer, reportOnStdout bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if reportOnStdout {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init installs a stderr logger from New as the slog default.
func Init(reportOnStdout bool, level slog.Level) {
	slog.SetDefault(New(os.Stderr, reportOnStdout, level))
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
