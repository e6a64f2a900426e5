package logger

import (
	"log/slog"
	"os"
)

// New returns the shared structured logger. JSON output keeps log pipelines
// happy; level can be raised via VIGIL_LOG_LEVEL=debug.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("VIGIL_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
