// Package logging configures the process-wide slog logger.
//
// Usage:
//
//	logger := logging.Setup(logging.Options{Level: slog.LevelDebug, Format: "text"})
//
// Text output is colored with tint; JSON output uses slog's JSON handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Options selects the handler built by New.
type Options struct {
	Level  slog.Level
	Format string // "text" (default) or "json"

	// Output defaults to os.Stderr.
	Output io.Writer
}

// New builds a logger without installing it.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	if opts.Format == "json" {
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:     opts.Level,
			AddSource: true,
		}))
	}

	return slog.New(tint.NewHandler(out, &tint.Options{
		Level:      opts.Level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
		NoColor:    !isTerminal(out),
	}))
}

// Setup builds a logger, makes it the slog default and returns it.
func Setup(opts Options) *slog.Logger {
	logger := New(opts)
	slog.SetDefault(logger)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
