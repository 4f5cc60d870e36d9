package starlark

import (
	"sync"

	"github.com/Bind-Forward/port/domain/ports"
	"go.starlark.net/starlark"
)

// Environment is the persistent global namespace of foreign-script runs.
// Bindings survive across runs; SetGlobal replaces a binding of the same name.
type Environment struct {
	globals starlark.StringDict
	mu      sync.Mutex
}

var _ ports.ExecutionEnvironment = (*Environment)(nil)

func newEnvironment(predeclared starlark.StringDict) *Environment {
	g := make(starlark.StringDict, len(predeclared))
	for k, v := range predeclared {
		g[k] = v
	}
	return &Environment{globals: g}
}

// SetGlobal converts value and binds it under name.
func (e *Environment) SetGlobal(name string, value any) error {
	sv, err := ToValue(value)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.globals[name] = sv
	e.mu.Unlock()
	return nil
}

// Global returns the Go form of a binding.
func (e *Environment) Global(name string) (any, bool) {
	e.mu.Lock()
	v, ok := e.globals[name]
	e.mu.Unlock()
	if !ok {
		return nil, false
	}
	gv, err := FromValue(v)
	if err != nil {
		return nil, false
	}
	return gv, true
}

// Names lists the bound globals, sorted.
func (e *Environment) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.globals.Keys()
}
