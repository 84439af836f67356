package logging

import (
	"io"
	"log/slog"
)

// NewLogger builds the process-wide structured logger: JSON lines to w at
// Info, or at Debug when verbose diagnostics are requested. The serve command
// points w at stderr so stdout stays clean for command output.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
