package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

// ParseLevel converts a level name (debug, info, warn, error) to slog.Level.
// An empty name means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger creates a colorized structured logger writing to w. Unknown
// levels fall back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	logLevel, _ := ParseLevel(level)

	handler := tint.NewHandler(w, &tint.Options{
		Level: logLevel,
	})

	return slog.New(handler)
}

// Logger creates the logger configured by c
func (c *Config) Logger(w io.Writer) *slog.Logger {
	return NewLogger(w, c.LogLevel)
}
