package channel

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"time"
)

// ErrClosed is returned by Send after the channel has been closed.
var ErrClosed = errors.New("channel closed")

// ErrFrameTooLarge is returned when a peer sends a frame above the limit.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

const (
	// DefaultMaxFrameSize bounds one received frame (16MB).
	DefaultMaxFrameSize = 16 * 1024 * 1024

	// DefaultBuffer is the number of received frames queued ahead of Receive.
	DefaultBuffer = 16

	// DefaultGracePeriod is how long Close waits for a worker process to
	// exit after its stdin is closed.
	DefaultGracePeriod = 5 * time.Second

	// DefaultWriteWait bounds one websocket write.
	DefaultWriteWait = 10 * time.Second
)

// Option configures a channel.
type Option func(*config)

type config struct {
	logger       *slog.Logger
	stderr       io.Writer
	dir          string
	env          []string
	maxFrameSize int
	buffer       int
	grace        time.Duration
	writeWait    time.Duration
}

func defaultConfig() config {
	return config{
		logger:       slog.Default(),
		stderr:       os.Stderr,
		maxFrameSize: DefaultMaxFrameSize,
		buffer:       DefaultBuffer,
		grace:        DefaultGracePeriod,
		writeWait:    DefaultWriteWait,
	}
}

func buildConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxFrameSize limits the size of a received frame.
func WithMaxFrameSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxFrameSize = n
		}
	}
}

// WithBuffer sets how many frames may be queued ahead of Receive.
func WithBuffer(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.buffer = n
		}
	}
}

// WithStderr sets where a spawned worker's stderr goes. Nil discards it.
func WithStderr(w io.Writer) Option {
	return func(c *config) {
		if w == nil {
			w = io.Discard
		}
		c.stderr = w
	}
}

// WithDir sets the working directory of a spawned worker.
func WithDir(dir string) Option {
	return func(c *config) {
		c.dir = dir
	}
}

// WithEnv sets the environment (KEY=VALUE) of a spawned worker. Empty keeps
// the host's environment.
func WithEnv(env []string) Option {
	return func(c *config) {
		c.env = env
	}
}

// WithGracePeriod sets how long Close waits before killing a worker process.
func WithGracePeriod(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.grace = d
		}
	}
}

// WithWriteWait bounds one websocket write.
func WithWriteWait(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.writeWait = d
		}
	}
}
