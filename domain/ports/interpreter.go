package ports

import "context"

// ExecutionEnvironment is the global namespace a foreign script runs in. It
// persists across runs; values set here stay visible to later runs.
type ExecutionEnvironment interface {
	// SetGlobal binds name to value, replacing any existing binding.
	SetGlobal(name string, value any) error

	// Global returns the current binding of name converted to a Go value.
	Global(name string) (any, bool)

	// Names lists the bound globals, sorted.
	Names() []string
}

// ForeignInterpreter runs whole scripts in an ExecutionEnvironment.
type ForeignInterpreter interface {
	// Ready is closed exactly once when the interpreter can run scripts,
	// whether startup succeeded or not. Err reports the startup error.
	Ready() <-chan struct{}

	// Err returns the startup error once Ready is closed.
	Err() error

	// NewEnvironment creates an empty namespace with the interpreter's
	// predeclared modules visible.
	NewEnvironment() (ExecutionEnvironment, error)

	// Run executes source in env and returns the value of its final
	// expression statement, or nil when the script does not end in one.
	Run(ctx context.Context, env ExecutionEnvironment, name string, source []byte) (any, error)
}
