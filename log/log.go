// Package log builds the slog loggers used by hosts and workers. A logger
// fans out to a text handler and an optional JSON file, and a worker can
// forward its records to the host as protocol log messages.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Level is shared by every logger built with New, so the level can be
// changed after construction.
var Level = new(slog.LevelVar)

// Option configures New.
type Option func(*loggerConfig)

type loggerConfig struct {
	out      io.Writer
	file     io.Writer
	handlers []slog.Handler
	source   bool
}

func defaultLoggerConfig() loggerConfig {
	return loggerConfig{out: os.Stderr}
}

// WithOutput sets the writer of the text handler. Nil disables it.
func WithOutput(w io.Writer) Option {
	return func(c *loggerConfig) {
		c.out = w
	}
}

// WithFile adds a JSON handler writing to w.
func WithFile(w io.Writer) Option {
	return func(c *loggerConfig) {
		c.file = w
	}
}

// WithHandler adds an extra handler to the fan-out.
func WithHandler(h slog.Handler) Option {
	return func(c *loggerConfig) {
		c.handlers = append(c.handlers, h)
	}
}

// WithSource records the caller's file and line.
func WithSource(enabled bool) Option {
	return func(c *loggerConfig) {
		c.source = enabled
	}
}

// New builds a logger that sends every record to all configured handlers.
func New(opts ...Option) *slog.Logger {
	cfg := defaultLoggerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	hopts := &slog.HandlerOptions{Level: Level, AddSource: cfg.source}
	var handlers []slog.Handler
	if cfg.out != nil {
		handlers = append(handlers, slog.NewTextHandler(cfg.out, hopts))
	}
	if cfg.file != nil {
		handlers = append(handlers, slog.NewJSONHandler(cfg.file, hopts))
	}
	handlers = append(handlers, cfg.handlers...)

	return slog.New(slogmulti.Fanout(handlers...))
}

// OpenFile opens path for appending log lines.
func OpenFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// ParseLevel accepts slog level names in any case ("debug", "WARN", "info+2").
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
