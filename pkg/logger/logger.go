package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs the default logger for env and returns it. Production logs
// JSON at info level; every other environment logs text at debug level.
func Setup(env string) *slog.Logger {
	l := New(os.Stderr, env, env != "production")
	slog.SetDefault(l)
	return l
}

func New(w io.Writer, env string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if env == "production" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("app", "larafront")
}
