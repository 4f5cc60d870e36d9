package starlark

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bind-Forward/port/domain/ports"
	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	"go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// Interpreter runs whole scripts in persistent environments.
type Interpreter struct {
	err         error
	ready       chan struct{}
	predeclared starlark.StringDict
	cfg         config
}

var _ ports.ForeignInterpreter = (*Interpreter)(nil)

// NewInterpreter starts an interpreter. Predeclared modules are assembled in
// the background; Ready is closed once that is done.
func NewInterpreter(opts ...Option) *Interpreter {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	in := &Interpreter{cfg: cfg, ready: make(chan struct{})}
	go in.start()
	return in
}

func (in *Interpreter) start() {
	defer close(in.ready)
	defer func() {
		if r := recover(); r != nil {
			in.err = fmt.Errorf("starlark interpreter startup: %v", r)
		}
	}()
	in.predeclared = predeclared(in.cfg)
}

// Ready is closed once the interpreter has started.
func (in *Interpreter) Ready() <-chan struct{} {
	return in.ready
}

// Err reports a startup failure after Ready is closed.
func (in *Interpreter) Err() error {
	select {
	case <-in.ready:
		return in.err
	default:
		return nil
	}
}

// NewEnvironment returns an empty namespace with the predeclared modules
// bound. It must not be called before Ready is closed.
func (in *Interpreter) NewEnvironment() (ports.ExecutionEnvironment, error) {
	select {
	case <-in.ready:
	default:
		return nil, errors.New("starlark interpreter is not ready")
	}
	if in.err != nil {
		return nil, in.err
	}
	return newEnvironment(in.predeclared), nil
}

// Run executes source in env. Globals assigned by the script are written
// back to env even when the run fails. The result is the value of the final
// statement when it is an expression, and nil otherwise.
func (in *Interpreter) Run(ctx context.Context, env ports.ExecutionEnvironment, name string, source []byte) (any, error) {
	e, ok := env.(*Environment)
	if !ok {
		return nil, fmt.Errorf("starlark interpreter cannot run in %T", env)
	}

	f, err := fileOptions.Parse(name, source, 0)
	if err != nil {
		return nil, err
	}

	var last syntax.Expr
	if n := len(f.Stmts); n > 0 {
		if stmt, ok := f.Stmts[n-1].(*syntax.ExprStmt); ok {
			last = stmt.X
			f.Stmts = f.Stmts[:n-1]
		}
	}

	thread := newThread(name, in.cfg)
	stop := cancelOnDone(ctx, thread)
	defer stop()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := starlark.ExecREPLChunk(f, thread, e.globals); err != nil {
		return nil, evalError(name, err)
	}
	if last == nil {
		return nil, nil
	}
	v, err := starlark.EvalExprOptions(fileOptions, thread, last, e.globals)
	if err != nil {
		return nil, evalError(name, err)
	}
	return FromValue(v)
}

func predeclared(cfg config) starlark.StringDict {
	d := starlark.StringDict{
		"json":   json.Module,
		"math":   math.Module,
		"time":   time.Module,
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	}
	for k, v := range cfg.modules {
		d[k] = v
	}
	return d
}

func newThread(name string, cfg config) *starlark.Thread {
	logger := cfg.logger
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Info(msg, "script", name)
		},
	}
	if cfg.maxSteps > 0 {
		thread.SetMaxExecutionSteps(cfg.maxSteps)
	}
	return thread
}

// cancelOnDone cancels the thread when ctx is done. The returned func stops
// the watcher.
func cancelOnDone(ctx context.Context, thread *starlark.Thread) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()
	return func() { close(done) }
}
