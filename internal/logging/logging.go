package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the process-wide logger. It discards output until Initialize runs
// so packages can log from tests without setup.
var Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Initialize builds Logger from a level name and a format ("text" or "json").
func Initialize(level, format string) error {
	return InitializeTo(os.Stderr, level, format)
}

// InitializeTo is Initialize with an explicit destination.
func InitializeTo(w io.Writer, level, format string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
	return nil
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}
