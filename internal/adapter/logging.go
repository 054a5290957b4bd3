package adapter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// SetupLogger appends JSON records to the configured file. No file means no logs;
// the TUI owns the terminal so nothing is ever written to stderr.
func SetupLogger(cfg *LoggingConfig) (*slog.Logger, error) {
	if cfg == nil || cfg.File == "" {
		return NullLogger(), nil
	}

	path, err := logFilePath(cfg.File)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return NewLogger(f, cfg.Level), nil
}

// logFilePath resolves a leading "~" or "~/" against the home directory
func logFilePath(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve log file %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p[1:], "/")), nil
}

// NewLogger writes JSON records at or above level to w
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}

// parseLogLevel accepts slog level names, case-insensitively, plus WARNING.
// Anything unrecognised logs at INFO.
func parseLogLevel(level string) slog.Level {
	name := strings.ToUpper(strings.TrimSpace(level))
	if name == "WARNING" {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NullLogger discards everything
func NullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
