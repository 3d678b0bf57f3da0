// Package logger provides a thin wrapper around slog for structured logging.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var level = new(slog.LevelVar)

func init() {
	level.Set(slog.LevelWarn)
}

// Logger is the global logger instance.
var Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

// SetLevel changes the minimum level of the global logger.
// Accepted values are debug, info, warn and error.
func SetLevel(name string) error {
	l, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.Set(l)
	return nil
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log level %q", name)
	}
}

// SetOutput redirects the global logger, keeping the current level.
func SetOutput(w io.Writer) {
	Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}
