// Package logger provides opinionated logging for the parley stack: slog
// loggers with a pretty CLI handler (charmbracelet/log), a JSON handler
// for services, and a no-op logger for tests.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// New builds a *slog.Logger from the given options. The default is a text
// handler at Info level writing to stdout; WithPretty switches to the
// charmbracelet handler for CLI use and WithJSON to structured JSON for
// services.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:   slog.LevelInfo,
		writers: []io.Writer{os.Stdout},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	w := io.MultiWriter(cfg.writers...)

	var handler slog.Handler
	switch {
	case cfg.pretty:
		charm := charmlog.NewWithOptions(w, charmlog.Options{
			ReportCaller:    cfg.source,
			ReportTimestamp: true,
		})
		charm.SetLevel(charmLevel(cfg.level))
		handler = charm
	case cfg.json:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     cfg.level,
			AddSource: cfg.source,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     cfg.level,
			AddSource: cfg.source,
		})
	}

	return slog.New(handler)
}

// Nop returns a logger that discards everything. Useful as a default in
// constructors and in tests that don't assert on log output.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func charmLevel(level slog.Level) charmlog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmlog.DebugLevel
	case level <= slog.LevelInfo:
		return charmlog.InfoLevel
	case level <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}
