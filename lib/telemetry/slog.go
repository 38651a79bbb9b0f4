package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog replaces the process default logger. Verbose mode drops the
// level to debug, which also switches on http message dumping wherever
// an instrumented resty client has an output attached.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
