package starlark

import (
	"log/slog"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

type config struct {
	logger   *slog.Logger
	modules  starlark.StringDict
	maxSteps uint64
}

func defaultConfig() config {
	return config{
		logger:  slog.Default(),
		modules: starlark.StringDict{},
	}
}

// Option configures an Engine or an Interpreter.
type Option func(*config)

// WithLogger sets the logger receiving script print output.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxSteps bounds the computation steps of each call or run.
// Zero means unbounded.
func WithMaxSteps(n uint64) Option {
	return func(c *config) {
		c.maxSteps = n
	}
}

// WithModule predeclares an extra value, typically a module, under name.
func WithModule(name string, v starlark.Value) Option {
	return func(c *config) {
		c.modules[name] = v
	}
}

// fileOptions allows the statement forms scripts commonly use at top level
// and lets a re-run script rebind its own globals.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}
