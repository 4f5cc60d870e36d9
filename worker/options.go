package worker

import (
	"log/slog"
	"time"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/infrastructure/native"
)

const (
	// DefaultReadyTimeout bounds the wait for the foreign interpreter.
	DefaultReadyTimeout = 30 * time.Second

	// DefaultMaxConcurrentCalls runs calls one at a time.
	DefaultMaxConcurrentCalls = 1
)

// Option configures a Runtime.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	fetcher     ports.Fetcher
	interpreter ports.ForeignInterpreter
	engines     map[entities.ModelRuntime]ports.Engine
	loaders     map[entities.ModelKind]Loader
	namespaces  map[string]*native.Registry
	stateHook   func(entities.WorkerState)

	readyTimeout  time.Duration
	callTimeout   time.Duration
	maxConcurrent int

	forwardLogs  bool
	forwardLevel slog.Level
}

func defaultConfig() config {
	return config{
		logger:        slog.Default(),
		engines:       map[entities.ModelRuntime]ports.Engine{},
		loaders:       map[entities.ModelKind]Loader{},
		namespaces:    map[string]*native.Registry{},
		readyTimeout:  DefaultReadyTimeout,
		maxConcurrent: DefaultMaxConcurrentCalls,
		forwardLevel:  slog.LevelInfo,
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFetcher sets how model sources given by location are retrieved.
func WithFetcher(f ports.Fetcher) Option {
	return func(c *config) {
		c.fetcher = f
	}
}

// WithInterpreter sets the interpreter foreign scripts run in.
func WithInterpreter(in ports.ForeignInterpreter) Option {
	return func(c *config) {
		c.interpreter = in
	}
}

// WithEngine sets the engine that loads sources for a model runtime.
func WithEngine(rt entities.ModelRuntime, e ports.Engine) Option {
	return func(c *config) {
		c.engines[rt] = e
	}
}

// WithNativeModels makes the Go models in reg loadable by descriptors with
// the native runtime whose source names namespace. Ignored when a native
// engine is set with WithEngine.
func WithNativeModels(namespace string, reg *native.Registry) Option {
	return func(c *config) {
		c.namespaces[namespace] = reg
	}
}

// WithLoader replaces or adds the loader for a model kind.
func WithLoader(kind entities.ModelKind, l Loader) Option {
	return func(c *config) {
		c.loaders[kind] = l
	}
}

// WithReadyTimeout bounds the wait for the foreign interpreter to start.
func WithReadyTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.readyTimeout = d
		}
	}
}

// WithCallTimeout sets the timeout of calls that do not carry their own.
// Zero means none.
func WithCallTimeout(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.callTimeout = d
		}
	}
}

// WithMaxConcurrentCalls sets how many calls may run at once. Foreign
// scripts always run one at a time because they share a namespace.
func WithMaxConcurrentCalls(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithLogForwarding sends the runtime's own log records at or above level
// to the host as log messages. Legacy sessions cannot carry them.
func WithLogForwarding(level slog.Level) Option {
	return func(c *config) {
		c.forwardLogs = true
		c.forwardLevel = level
	}
}

// WithStateHook is called on every session state transition.
func WithStateHook(fn func(entities.WorkerState)) Option {
	return func(c *config) {
		c.stateHook = fn
	}
}
