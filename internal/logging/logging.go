// Package logging configures the process-wide slog logger for the CLI.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init creates and sets the default slog logger writing to stderr.
// When jsonOutput is true the handler emits JSON so that machine-readable
// stdout output is not mixed with free-form text.
func Init(jsonOutput bool, level slog.Level) *slog.Logger {
	return InitWriter(os.Stderr, jsonOutput, level)
}

// InitWriter is like Init but writes to w.
func InitWriter(w io.Writer, jsonOutput bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
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
