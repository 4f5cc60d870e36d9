package native

import (
	"context"
	"fmt"
	"sort"

	"github.com/Bind-Forward/port/domain/ports"
)

// Constructor builds one model instance whose methods are bound by name.
type Constructor func() any

// Factory produces a model. It is called once, with no payload, when the
// model loads.
type Factory func(ctx context.Context) (ports.Func, error)

type entry struct {
	fn      ports.Func
	ctor    Constructor
	factory Factory
}

// Registry is an immutable collection of named Go models.
// Once created via NewRegistry, entries cannot be added or removed,
// so lookups need no locking.
type Registry struct {
	entries    map[string]entry
	names      []string // sorted for consistent iteration
	middleware []Middleware
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	entries    map[string]entry
	middleware []Middleware
	errors     []error
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*registryBuilder)

// NewRegistry creates an immutable Registry with the given options.
// Returns an error if any name is registered twice or a function has an
// unsupported signature.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	b := &registryBuilder{
		entries: make(map[string]entry),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := make([]string, 0, len(b.entries))
	for name := range b.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{
		entries:    b.entries,
		names:      names,
		middleware: b.middleware,
	}, nil
}

// Has returns true if an entry with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Names returns a sorted list of all registered names.
func (r *Registry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// wrap applies the middleware chain; the first middleware added is outermost.
func (r *Registry) wrap(label string, fn ports.Func) ports.Func {
	wrapped := fn
	for i := len(r.middleware) - 1; i >= 0; i-- {
		wrapped = r.middleware[i](wrapped)
	}
	return func(ctx context.Context, args ...any) (any, error) {
		return wrapped(NewCallContext(ctx, label), args...)
	}
}

func (b *registryBuilder) add(name string, e entry) {
	if name == "" {
		b.errors = append(b.errors, fmt.Errorf("model name cannot be empty"))
		return
	}
	if _, exists := b.entries[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("duplicate model name: %q", name))
		return
	}
	b.entries[name] = e
}

// WithFunc registers a Go function as a model. fn must be a func whose
// first parameter is a context.Context and whose last result is an error;
// remaining parameters receive the call arguments.
func WithFunc(name string, fn any) RegistryOption {
	return func(b *registryBuilder) {
		wrapped, err := wrapFunc(fn)
		if err != nil {
			b.errors = append(b.errors, fmt.Errorf("model %q: %w", name, err))
			return
		}
		b.add(name, entry{fn: wrapped})
	}
}

// WithModel registers an already uniform model callable.
func WithModel(name string, fn ports.Func) RegistryOption {
	return func(b *registryBuilder) {
		b.add(name, entry{fn: fn})
	}
}

// WithClass registers a constructor. Methods are resolved on the instance
// it returns, with the same signature rules as WithFunc.
func WithClass(name string, ctor Constructor) RegistryOption {
	return func(b *registryBuilder) {
		b.add(name, entry{ctor: ctor})
	}
}

// WithFactory registers a factory that produces a model when loaded.
func WithFactory(name string, factory Factory) RegistryOption {
	return func(b *registryBuilder) {
		b.add(name, entry{factory: factory})
	}
}

// WithMiddleware adds middleware wrapped around every resolved model.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
