package ports

import "context"

// Func is a resolved model callable: a function, a bound method or a model
// produced by a factory.
type Func func(ctx context.Context, args ...any) (any, error)

// Awaitable is a value whose result is only available later. Models may
// return one; the worker resolves it before replying.
type Awaitable interface {
	Await(ctx context.Context) (any, error)
}

// Engine loads model source into an isolated module.
type Engine interface {
	// Load evaluates source once. name labels the module in errors.
	Load(ctx context.Context, name string, source []byte) (Module, error)
}

// Module is a loaded model source. Its exports form an explicit name→value
// registry populated once by Load.
type Module interface {
	// Exports lists the resolvable names, sorted.
	Exports() []string

	// Function resolves a named callable.
	Function(name string) (Func, error)

	// Construct builds one instance of the named class and returns its
	// method bound to that instance.
	Construct(ctx context.Context, class, method string) (Func, error)

	// Produce calls the named factory with no arguments and returns the
	// callable it yields.
	Produce(ctx context.Context, factory string) (Func, error)

	// Close releases engine resources held by the module.
	Close(ctx context.Context) error
}
