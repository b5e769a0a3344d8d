// Package logging provides the slog constructors shared by the funnel hosts.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates the application logger for CLI and server hosts. Output
// goes to stderr so stdout stays free for the interactive flow UI and
// piped command output.
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter creates a logger on an explicit writer. Every record is
// tagged with the application name, and attribute keys are normalized so
// log lines stay grep-stable across packages.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: normalizeAttr,
	})
	return slog.New(handler).With("app", "funnel")
}

// NewNop returns a logger that discards everything. Library code uses it
// as the default so logging is always optional for embedding hosts.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// normalizeAttr funnels the error-key variants different packages use
// into a single "err" key.
func normalizeAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case "error", "Error":
		a.Key = "err"
	}
	return a
}
