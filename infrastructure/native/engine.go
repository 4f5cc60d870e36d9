package native

import (
	"context"
	"fmt"
	"sort"
	"strings"

	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
)

// Engine resolves native model sources. The source text of a native model
// names a namespace; each namespace is a Registry.
type Engine struct {
	namespaces map[string]*Registry
}

var _ ports.Engine = (*Engine)(nil)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithNamespace makes reg loadable under name.
func WithNamespace(name string, reg *Registry) EngineOption {
	return func(e *Engine) {
		e.namespaces[name] = reg
	}
}

// NewEngine creates an engine serving the given namespaces.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{namespaces: make(map[string]*Registry)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Namespaces returns the registered namespace names, sorted.
func (e *Engine) Namespaces() []string {
	names := make([]string, 0, len(e.namespaces))
	for name := range e.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load resolves the namespace named by source, falling back to name when
// source is blank.
func (e *Engine) Load(_ context.Context, name string, source []byte) (ports.Module, error) {
	ns := strings.TrimSpace(string(source))
	if ns == "" {
		ns = name
	}
	reg, ok := e.namespaces[ns]
	if !ok {
		return nil, &domainerrors.ResolutionError{Name: ns, Available: e.Namespaces()}
	}
	return &module{reg: reg}, nil
}

type module struct {
	reg *Registry
}

func (m *module) Exports() []string {
	return m.reg.Names()
}

func (m *module) lookup(name string) (entry, error) {
	e, ok := m.reg.entries[name]
	if !ok {
		return entry{}, &domainerrors.ResolutionError{Name: name, Available: m.reg.Names()}
	}
	return e, nil
}

func (m *module) Function(name string) (ports.Func, error) {
	e, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	if e.fn == nil {
		return nil, &domainerrors.ResolutionError{Name: name, Reason: "is not a function"}
	}
	return m.reg.wrap(name, e.fn), nil
}

func (m *module) Construct(_ context.Context, class, method string) (ports.Func, error) {
	e, err := m.lookup(class)
	if err != nil {
		return nil, err
	}
	if e.ctor == nil {
		return nil, fmt.Errorf("%s is not a class", class)
	}
	instance := e.ctor()
	if instance == nil {
		return nil, fmt.Errorf("constructor %s returned nil", class)
	}

	label := class + "." + method
	bound, err := bindMethod(instance, method)
	if err != nil {
		return nil, err
	}
	if bound == nil {
		return nil, &domainerrors.ResolutionError{Name: label, Available: methodNames(instance)}
	}
	return m.reg.wrap(label, bound), nil
}

func (m *module) Produce(ctx context.Context, factory string) (ports.Func, error) {
	e, err := m.lookup(factory)
	if err != nil {
		return nil, err
	}
	if e.factory == nil {
		return nil, fmt.Errorf("%s is not a factory", factory)
	}
	fn, err := e.factory(ctx)
	if err != nil {
		return nil, &domainerrors.InvocationError{Entry: factory, Err: err}
	}
	if fn == nil {
		return nil, fmt.Errorf("factory %s produced no model", factory)
	}
	return m.reg.wrap(factory, fn), nil
}

func (m *module) Close(context.Context) error {
	return nil
}
