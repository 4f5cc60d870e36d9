package host

import (
	"log/slog"
	"time"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/worker"
)

// StatusHandler observes status events from the worker.
type StatusHandler func(status entities.Status)

// ResultHandler observes the result of a call.
type ResultHandler func(id uint64, value any)

// ErrorHandler observes the failure of a call, or of the model load when id
// is the Init id.
type ErrorHandler func(id uint64, err *entities.ErrorDetail)

// config holds configuration for the Controller.
type config struct {
	logger      *slog.Logger
	dialer      Dialer
	fetcher     ports.Fetcher
	loader      *Loader
	sink        ports.OutputSink
	onStatus    StatusHandler
	onResult    ResultHandler
	onError     ErrorHandler
	vars        map[string]any
	workerOpts  []worker.Option
	dialect     entities.Dialect
	callTimeout time.Duration
}

func defaultConfig() config {
	return config{
		logger:  slog.Default(),
		dialect: entities.DialectTagged,
	}
}

// Option configures a Controller.
type Option func(*config)

// WithLogger sets the logger. Log records forwarded by the worker are
// replayed through it.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDialer sets how the worker channel is opened for isolated models.
// The default runs a worker goroutine behind an in-memory pipe.
func WithDialer(d Dialer) Option {
	return func(c *config) {
		c.dialer = d
	}
}

// WithFetcher sets the fetcher used for schema documents and handed to
// in-process runtimes.
func WithFetcher(f ports.Fetcher) Option {
	return func(c *config) {
		c.fetcher = f
	}
}

// WithLoader replaces the schema loader used by InitializeFrom.
func WithLoader(l *Loader) Option {
	return func(c *config) {
		c.loader = l
	}
}

// WithOutputSink routes results to sink through the output dispatcher.
func WithOutputSink(sink ports.OutputSink) Option {
	return func(c *config) {
		c.sink = sink
	}
}

// WithStatusHandler registers a callback for status events.
func WithStatusHandler(fn StatusHandler) Option {
	return func(c *config) {
		c.onStatus = fn
	}
}

// WithResultHandler registers a callback for call results.
func WithResultHandler(fn ResultHandler) Option {
	return func(c *config) {
		c.onResult = fn
	}
}

// WithErrorHandler registers a callback for error replies.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(c *config) {
		c.onError = fn
	}
}

// WithTemplateVars sets the variables schema documents are rendered with.
func WithTemplateVars(vars map[string]any) Option {
	return func(c *config) {
		c.vars = vars
	}
}

// WithWorkerOptions configures runtimes the controller creates itself: the
// default in-process worker and the runtime of non-isolated models.
func WithWorkerOptions(opts ...worker.Option) Option {
	return func(c *config) {
		c.workerOpts = append(c.workerOpts, opts...)
	}
}

// WithLegacyDialect makes the controller speak the untagged dialect, for
// workers that predate tagged messages. Replies then carry no ids and are
// matched to calls in order.
func WithLegacyDialect() Option {
	return func(c *config) {
		c.dialect = entities.DialectLegacy
	}
}

// WithCallTimeout sets the timeout sent with every call. Zero means none.
func WithCallTimeout(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.callTimeout = d
		}
	}
}
