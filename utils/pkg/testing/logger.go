package raffletesting

import (
	"log/slog"
	"os"

	"github.com/malbeclabs/raffle/utils/pkg/logger"
)

// LevelFromEnv maps DEBUG to a log level: 1 is info, 2 is debug, anything
// else keeps tests quiet down to errors.
func LevelFromEnv() slog.Level {
	switch os.Getenv("DEBUG") {
	case "2":
		return slog.LevelDebug
	case "1":
		return slog.LevelInfo
	}
	return slog.LevelError
}

// NewLogger returns the process logger without colors on stderr, at the
// level selected by DEBUG.
func NewLogger() *slog.Logger {
	return logger.NewWithOptions(logger.Options{
		NoColor: true,
		Writer:  os.Stderr,
		Level:   LevelFromEnv(),
	})
}
