package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app's own logger without touching slog's default, so
// several apps (and tests) can log to different writers in one process.
// Levels are validated by NewConfig; anything unparsable here logs at info.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch formatStr {
	case "json":
		handler = slog.NewJSONHandler(outW, opts)
	default:
		handler = slog.NewTextHandler(outW, opts)
	}
	return slog.New(handler).With("app", "treeplug")
}
