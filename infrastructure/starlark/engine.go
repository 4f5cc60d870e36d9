package starlark

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
	"go.starlark.net/starlark"
)

// Engine loads Starlark model sources.
type Engine struct {
	predeclared starlark.StringDict
	cfg         config
}

var _ ports.Engine = (*Engine)(nil)

// NewEngine creates an engine with the standard predeclared modules
// (json, math, time, struct) plus any added with WithModule.
func NewEngine(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{cfg: cfg, predeclared: predeclared(cfg)}
}

// Load executes source once and captures its top-level definitions.
func (e *Engine) Load(ctx context.Context, name string, source []byte) (ports.Module, error) {
	thread := newThread(name, e.cfg)
	stop := cancelOnDone(ctx, thread)
	defer stop()

	globals, err := starlark.ExecFileOptions(fileOptions, thread, name, source, e.predeclared)
	if err != nil {
		return nil, err
	}
	return &module{name: name, globals: globals, cfg: e.cfg}, nil
}

// module holds the globals of one loaded file. Starlark values are not safe
// for concurrent mutation, so calls into a module are serialized.
type module struct {
	globals starlark.StringDict
	name    string
	cfg     config
	mu      sync.Mutex
}

func (m *module) Exports() []string {
	return m.globals.Keys()
}

func (m *module) lookup(name string) (starlark.Callable, error) {
	v, ok := m.globals[name]
	if !ok {
		return nil, &domainerrors.ResolutionError{Name: name, Available: m.Exports()}
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, &domainerrors.ResolutionError{Name: name, Reason: fmt.Sprintf("is a %s, not callable", v.Type())}
	}
	return fn, nil
}

func (m *module) Function(name string) (ports.Func, error) {
	fn, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return m.bind(name, fn), nil
}

// Construct calls the class constructor with no arguments and binds the
// method found as an attribute (or dict key) of the returned instance.
func (m *module) Construct(ctx context.Context, class, method string) (ports.Func, error) {
	ctor, err := m.lookup(class)
	if err != nil {
		return nil, err
	}
	inst, err := m.call(ctx, class, ctor, nil)
	if err != nil {
		return nil, err
	}
	fn, err := attrCallable(inst, method)
	if err != nil {
		return nil, &domainerrors.ResolutionError{Name: class + "." + method}
	}
	return m.bind(class+"."+method, fn), nil
}

// Produce calls the factory with no arguments; the callable it returns is
// the model.
func (m *module) Produce(ctx context.Context, factory string) (ports.Func, error) {
	fn, err := m.lookup(factory)
	if err != nil {
		return nil, err
	}
	v, err := m.call(ctx, factory, fn, nil)
	if err != nil {
		return nil, err
	}
	model, ok := v.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("factory %s returned %s, not a callable", factory, v.Type())
	}
	return m.bind(factory+"()", model), nil
}

func (m *module) Close(context.Context) error {
	return nil
}

func (m *module) bind(label string, fn starlark.Callable) ports.Func {
	return func(ctx context.Context, args ...any) (any, error) {
		sargs := make(starlark.Tuple, len(args))
		for i, a := range args {
			sv, err := ToValue(a)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			sargs[i] = sv
		}
		v, err := m.call(ctx, label, fn, sargs)
		if err != nil {
			return nil, err
		}
		return FromValue(v)
	}
}

func (m *module) call(ctx context.Context, label string, fn starlark.Callable, args starlark.Tuple) (starlark.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	thread := newThread(m.name, m.cfg)
	stop := cancelOnDone(ctx, thread)
	defer stop()

	v, err := starlark.Call(thread, fn, args, nil)
	if err != nil {
		return nil, evalError(label, err)
	}
	return v, nil
}

func attrCallable(v starlark.Value, name string) (starlark.Callable, error) {
	var attr starlark.Value
	switch inst := v.(type) {
	case *starlark.Dict:
		a, found, err := inst.Get(starlark.String(name))
		if err != nil {
			return nil, err
		}
		if found {
			attr = a
		}
	case starlark.HasAttrs:
		a, err := inst.Attr(name)
		if err != nil {
			return nil, err
		}
		attr = a
	}
	fn, ok := attr.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%s has no method %s", v.Type(), name)
	}
	return fn, nil
}

// evalError keeps the Starlark backtrace of a failed evaluation.
func evalError(entry string, err error) error {
	var ee *starlark.EvalError
	if errors.As(err, &ee) {
		return &domainerrors.InvocationError{Entry: entry, Err: errors.New(ee.Msg), Stack: ee.Backtrace()}
	}
	return &domainerrors.InvocationError{Entry: entry, Err: err}
}
