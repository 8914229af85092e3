// Package logging builds the process logger. Records fan out to a debug file
// and, while no terminal UI owns the screen, to the console.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

type Config struct {
	Level slog.Level
	// File receives every record at debug level when set.
	File io.Writer
	// Console receives records at Level when set.
	Console io.Writer
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func New(c Config) *slog.Logger {
	var handlers []slog.Handler
	if c.File != nil {
		handlers = append(handlers, slog.NewJSONHandler(c.File, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}))
	}
	if c.Console != nil {
		handlers = append(handlers, slog.NewTextHandler(c.Console, &slog.HandlerOptions{Level: c.Level}))
	}
	if len(handlers) == 0 {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

// OpenFile opens the debug log for appending.
func OpenFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	return f, nil
}
