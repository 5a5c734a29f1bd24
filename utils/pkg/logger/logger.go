package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Options controls how the process logger renders records.
type Options struct {
	Verbose bool
	NoColor bool
	Writer  io.Writer

	// Level, if set, takes precedence over Verbose.
	Level slog.Leveler
}

// New returns a tint logger on stdout at info level, or debug when verbose.
func New(verbose bool) *slog.Logger {
	return NewWithOptions(Options{Verbose: verbose})
}

func NewWithOptions(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	var level slog.Leveler = slog.LevelInfo
	switch {
	case opts.Level != nil:
		level = opts.Level
	case opts.Verbose:
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       level,
		NoColor:     opts.NoColor,
		ReplaceAttr: replaceAttr,
	}))
}

// replaceAttr renders times as UTC millisecond RFC3339 and drops empty string attrs.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().UTC().Format(timeFormat))
	}
	if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
		return slog.Attr{}
	}
	return a
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"
