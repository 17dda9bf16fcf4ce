// Package logging configures the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config selects the minimum level and an optional log file.
type Config struct {
	Level string
	File  string
}

// ParseLevel maps level names (DEBUG, INFO, WARN/WARNING, ERROR) to slog levels.
// Unknown names fall back to INFO and report ok=false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO", "":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR", "CRITICAL":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// New builds a JSON logger writing to out and, when cfg.File is set, to that file too.
// The returned closer releases the file handle.
func New(cfg Config, out io.Writer) (*slog.Logger, io.Closer) {
	level, ok := ParseLevel(cfg.Level)

	writer := out
	var closer io.Closer = nopCloser{}
	var fileErr error
	if path := strings.TrimSpace(cfg.File); path != "" {
		f, err := openLogFile(path)
		if err != nil {
			fileErr = err
		} else {
			writer = io.MultiWriter(out, f)
			closer = f
		}
	}

	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level}))
	if !ok {
		logger.Warn("invalid log level, defaulting to INFO", "level", cfg.Level)
	}
	if fileErr != nil {
		logger.Warn("file logging disabled", "path", cfg.File, "error", fileErr)
	}
	return logger, closer
}

// Setup installs the logger as the slog default and routes the standard log package through it.
func Setup(cfg Config) io.Closer {
	logger, closer := New(cfg, os.Stdout)
	slog.SetDefault(logger)
	log.SetFlags(0)
	return closer
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
