package main

import (
	"log/slog"
	"os"
	"time"
)

// NewLogger returns a JSON slog.Logger on stdout. Debug level adds source
// locations; durations are written in milliseconds.
func NewLogger(level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindDuration {
				return slog.Float64(a.Key+"_ms", float64(a.Value.Duration())/float64(time.Millisecond))
			}
			return a
		},
	})
	return slog.New(h).With("app", "keyprompt-bot")
}
