package worker

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/Bind-Forward/port/domain/entities"
	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/infrastructure/native"
)

// Loader prepares a model from a normalized, validated descriptor.
type Loader interface {
	Load(ctx context.Context, d entities.ModelDescriptor) (Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, d entities.ModelDescriptor) (Model, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, d entities.ModelDescriptor) (Model, error) {
	return f(ctx, d)
}

// sourceName labels loaded source in errors and backtraces.
func sourceName(d entities.ModelDescriptor) string {
	if d.SourceLocation != "" {
		return path.Base(d.SourceLocation)
	}
	return "inline"
}

// source returns the model source text, fetching it when the descriptor
// gives a location.
func (r *Runtime) source(ctx context.Context, d entities.ModelDescriptor) ([]byte, error) {
	if d.InlineSource != "" {
		return []byte(d.InlineSource), nil
	}
	if r.cfg.fetcher == nil {
		return nil, &domainerrors.LoadError{Source: d.SourceLocation, Err: fmt.Errorf("no fetcher configured")}
	}
	src, err := r.cfg.fetcher.Fetch(ctx, d.SourceLocation)
	if err != nil {
		return nil, &domainerrors.LoadError{Source: d.SourceLocation, Err: err}
	}
	return src, nil
}

// entryError classifies a failure while preparing the entry. A constructor
// or factory that raises is a load failure; a missing entry stays a
// resolution failure.
func entryError(d entities.ModelDescriptor, err error) error {
	var (
		re *domainerrors.ResolutionError
		le *domainerrors.LoadError
	)
	if errors.As(err, &re) || errors.As(err, &le) {
		return err
	}
	return &domainerrors.LoadError{Source: d.Label(), Err: err}
}

// module loads the descriptor's source into its runtime's engine.
func (r *Runtime) module(ctx context.Context, d entities.ModelDescriptor) (ports.Module, error) {
	engine, err := r.engine(ctx, d.Runtime)
	if err != nil {
		return nil, &domainerrors.LoadError{Source: d.SourceLocation, Err: err}
	}
	src, err := r.source(ctx, d)
	if err != nil {
		return nil, err
	}
	mod, err := engine.Load(ctx, sourceName(d), src)
	if err != nil {
		var re *domainerrors.ResolutionError
		if errors.As(err, &re) {
			return nil, err
		}
		return nil, &domainerrors.LoadError{Source: d.SourceLocation, Err: err}
	}
	return mod, nil
}

func (r *Runtime) loadFunction(ctx context.Context, d entities.ModelDescriptor) (Model, error) {
	mod, err := r.module(ctx, d)
	if err != nil {
		return nil, err
	}
	fn, err := mod.Function(d.EntryName)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	return &funcModel{fn: fn, module: mod, label: d.Label(), style: d.ArgumentStyle}, nil
}

func (r *Runtime) loadClass(ctx context.Context, d entities.ModelDescriptor) (Model, error) {
	mod, err := r.module(ctx, d)
	if err != nil {
		return nil, err
	}
	fn, err := mod.Construct(ctx, d.EntryName, d.InvocationMethod)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, entryError(d, err)
	}
	return &funcModel{fn: fn, module: mod, label: d.Label(), style: d.ArgumentStyle}, nil
}

// loadAsyncInit calls the factory once on its own goroutine; the callable
// it eventually yields is the model.
func (r *Runtime) loadAsyncInit(ctx context.Context, d entities.ModelDescriptor) (Model, error) {
	mod, err := r.module(ctx, d)
	if err != nil {
		return nil, err
	}
	pending := native.Go(ctx, func(ctx context.Context) (any, error) {
		return mod.Produce(ctx, d.EntryName)
	})
	v, err := pending.Await(ctx)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, entryError(d, err)
	}
	fn, ok := v.(ports.Func)
	if !ok || fn == nil {
		_ = mod.Close(ctx)
		return nil, &domainerrors.LoadError{Source: d.SourceLocation, Err: fmt.Errorf("factory %s yielded no model", d.EntryName)}
	}
	return &funcModel{fn: fn, module: mod, label: d.Label(), style: d.ArgumentStyle}, nil
}

// loadForeign fetches the script while waiting for the interpreter, both
// bounded by the ready timeout, then runs the script once to prime the
// shared environment. A failing prime run is logged and ignored.
func (r *Runtime) loadForeign(ctx context.Context, d entities.ModelDescriptor) (Model, error) {
	interp := r.cfg.interpreter
	if interp == nil {
		return nil, &domainerrors.LoadError{Source: d.SourceLocation, Err: fmt.Errorf("no interpreter configured")}
	}

	waitCtx, cancel := context.WithTimeoutCause(ctx, r.cfg.readyTimeout, &domainerrors.TimeoutError{
		Operation: "interpreter startup",
		Duration:  r.cfg.readyTimeout,
	})
	defer cancel()

	type fetched struct {
		src []byte
		err error
	}
	sourceCh := make(chan fetched, 1)
	go func() {
		src, err := r.source(waitCtx, d)
		sourceCh <- fetched{src: src, err: err}
	}()

	select {
	case <-interp.Ready():
	case <-waitCtx.Done():
		return nil, &domainerrors.LoadError{Source: d.SourceLocation, Err: context.Cause(waitCtx)}
	}
	if err := interp.Err(); err != nil {
		return nil, &domainerrors.LoadError{Source: d.SourceLocation, Err: err}
	}

	var res fetched
	select {
	case res = <-sourceCh:
	case <-waitCtx.Done():
		return nil, &domainerrors.LoadError{Source: d.SourceLocation, Err: context.Cause(waitCtx)}
	}
	if res.err != nil {
		return nil, res.err
	}

	env, err := interp.NewEnvironment()
	if err != nil {
		return nil, &domainerrors.LoadError{Source: d.SourceLocation, Err: err}
	}
	m := &foreignModel{interp: interp, env: env, name: sourceName(d), source: res.src}

	if _, err := interp.Run(ctx, env, m.name, m.source); err != nil {
		r.cfg.logger.WarnContext(ctx, "worker: prime run of foreign script failed", "model", d.Label(), "error", err)
	}
	return m, nil
}
