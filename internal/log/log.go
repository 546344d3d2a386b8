// Package log configures the process-wide slog logger for the voicechat
// binaries. Packages take a *slog.Logger option and fall back to
// slog.Default, which Init replaces.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	global *slog.Logger
	once   sync.Once
)

// ParseLevel reads a LOG_LEVEL value. Anything unrecognized is info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Init installs the global logger writing to w, or stdout when w is nil.
// Calls after the first are ignored.
func Init(level string, w io.Writer) {
	once.Do(func() {
		global = New(level, w)
		slog.SetDefault(global)
	})
}

// New builds a logger without installing it. GO_ENV=production selects
// JSON output; otherwise lines are logfmt text.
func New(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard drops every record. Tests pass it where a logger is required.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// L returns the global logger, initializing it at info level if needed.
func L() *slog.Logger {
	Init("info", nil)
	return global
}

// Error logs to the global logger.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}
