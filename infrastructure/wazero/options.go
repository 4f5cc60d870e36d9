package wazero

import (
	"log/slog"
)

const (
	// DefaultHostModuleName is the import module exposing host functions.
	DefaultHostModuleName = "port_host"

	// DefaultMaxResponseSize limits the size of JSON results read from
	// guest memory.
	DefaultMaxResponseSize = 1 << 20 // 1MB
)

type config struct {
	logger           *slog.Logger
	hostModuleName   string
	maxResponseSize  uint32
	memoryLimitPages uint32
}

// Option configures an Engine.
type Option func(*config)

func defaultConfig() config {
	return config{
		logger:          slog.Default(),
		hostModuleName:  DefaultHostModuleName,
		maxResponseSize: DefaultMaxResponseSize,
	}
}

// WithLogger sets the logger receiving guest log_message records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHostModuleName sets the import module name (default: "port_host").
func WithHostModuleName(name string) Option {
	return func(c *config) {
		c.hostModuleName = name
	}
}

// WithMaxResponseSize sets the maximum JSON result size read from guest
// memory.
func WithMaxResponseSize(size uint32) Option {
	return func(c *config) {
		c.maxResponseSize = size
	}
}

// WithMemoryLimitPages caps guest memory in 64KiB pages. Zero keeps the
// runtime default.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *config) {
		c.memoryLimitPages = pages
	}
}
