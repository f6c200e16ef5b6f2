package logging

import (
	"log/slog"
	"strings"
)

// DefaultLevel is the log level used when not configured.
const DefaultLevel = slog.LevelInfo

// ParseLevel converts a level name ("debug", "info", "warn", "error",
// case-insensitive) to slog.Level. Returns (DefaultLevel, false) for
// anything else.
func ParseLevel(s string) (slog.Level, bool) {
	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	if l, ok := levels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l, true
	}
	return DefaultLevel, false
}
