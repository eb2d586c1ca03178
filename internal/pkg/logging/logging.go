package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ActivityLog is the file name written under the log directory.
const ActivityLog = "activity.log"

// Setup initialises the global slog default logger writing to stdout.
// level may be "debug", "info", "warn", or "error" (default "info").
// format may be "json" or "text" (default "json").
func Setup(level, format string) *slog.Logger {
	return SetupWriter(os.Stdout, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OpenActivityLog creates dir if needed and opens dir/activity.log for
// appending.
func OpenActivityLog(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return os.OpenFile(filepath.Join(dir, ActivityLog), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// SetupWithDir logs to stdout and, when dir is set, also to dir/activity.log.
// The returned close function releases the file.
func SetupWithDir(level, format, dir string) (*slog.Logger, func() error, error) {
	if dir == "" {
		return Setup(level, format), func() error { return nil }, nil
	}
	f, err := OpenActivityLog(dir)
	if err != nil {
		return nil, nil, err
	}
	return SetupWriter(io.MultiWriter(os.Stdout, f), level, format), f.Close, nil
}
