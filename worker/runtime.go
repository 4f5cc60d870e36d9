package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Bind-Forward/port/domain/entities"
	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/infrastructure/fetch"
	"github.com/Bind-Forward/port/infrastructure/native"
	starlarkengine "github.com/Bind-Forward/port/infrastructure/starlark"
	wasmengine "github.com/Bind-Forward/port/infrastructure/wazero"
)

// Runtime loads and serves models. One Runtime may serve several channels;
// each gets its own session with its own model.
type Runtime struct {
	loaders *loaderRegistry
	cfg     config

	wasmOnce sync.Once
	wasm     *wasmengine.Engine
	wasmErr  error
}

// New creates a Runtime. Unless replaced by options it loads starlark
// sources, runs foreign scripts in a starlark interpreter, fetches sources
// with the default fetcher and creates a wasm engine on first use.
func New(opts ...Option) *Runtime {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.fetcher == nil {
		if f, err := fetch.New(fetch.WithLogger(cfg.logger)); err == nil {
			cfg.fetcher = f
		} else {
			cfg.logger.Warn("worker: default fetcher unavailable", "error", err)
		}
	}
	if cfg.interpreter == nil {
		cfg.interpreter = starlarkengine.NewInterpreter(starlarkengine.WithLogger(cfg.logger))
	}
	if _, ok := cfg.engines[entities.RuntimeStarlark]; !ok {
		cfg.engines[entities.RuntimeStarlark] = starlarkengine.NewEngine(starlarkengine.WithLogger(cfg.logger))
	}
	if _, ok := cfg.engines[entities.RuntimeNative]; !ok && len(cfg.namespaces) > 0 {
		var nopts []native.EngineOption
		for name, reg := range cfg.namespaces {
			nopts = append(nopts, native.WithNamespace(name, reg))
		}
		cfg.engines[entities.RuntimeNative] = native.NewEngine(nopts...)
	}

	r := &Runtime{cfg: cfg, loaders: newLoaderRegistry(WithStrictMode(false))}
	builtin := map[entities.ModelKind]Loader{
		entities.KindFunction:      LoaderFunc(r.loadFunction),
		entities.KindClass:         LoaderFunc(r.loadClass),
		entities.KindAsyncInit:     LoaderFunc(r.loadAsyncInit),
		entities.KindForeignScript: LoaderFunc(r.loadForeign),
	}
	for kind, l := range builtin {
		_ = r.loaders.Register(kind, l)
	}
	for kind, l := range cfg.loaders {
		if err := r.loaders.Register(kind, l); err != nil {
			cfg.logger.Warn("worker: ignoring loader", "kind", kind, "error", err)
		}
	}
	return r
}

// Kinds lists the model kinds this runtime can load.
func (r *Runtime) Kinds() []string {
	return r.loaders.Kinds()
}

// Load prepares the model a descriptor describes. It is the same code path
// a session uses on Init, so in-process models behave like isolated ones.
func (r *Runtime) Load(ctx context.Context, d entities.ModelDescriptor) (Model, error) {
	d = d.Normalized()
	if err := entities.ValidateDescriptor(d); err != nil {
		return nil, &domainerrors.LoadError{Source: d.SourceLocation, Err: err}
	}
	l, ok := r.loaders.Get(d.Kind)
	if !ok {
		return nil, &domainerrors.LoadError{
			Source: d.SourceLocation,
			Err:    fmt.Errorf("no loader for model kind %q (available: %v)", d.Kind, r.loaders.Kinds()),
		}
	}
	return l.Load(ctx, d)
}

func (r *Runtime) engine(ctx context.Context, rt entities.ModelRuntime) (ports.Engine, error) {
	if e, ok := r.cfg.engines[rt]; ok {
		return e, nil
	}
	if rt == entities.RuntimeWasm {
		r.wasmOnce.Do(func() {
			r.wasm, r.wasmErr = wasmengine.NewEngine(context.WithoutCancel(ctx), wasmengine.WithLogger(r.cfg.logger))
		})
		if r.wasmErr != nil {
			return nil, r.wasmErr
		}
		return r.wasm, nil
	}
	return nil, fmt.Errorf("no engine for runtime %q", rt)
}

// Serve runs one session over ch until the peer closes it or ctx ends.
// When the peer closes the channel, work already accepted is finished
// before Serve returns.
func (r *Runtime) Serve(ctx context.Context, ch ports.Channel) error {
	s := newSession(ctx, r, ch)
	runCtx, cancel := context.WithCancel(ctx)

	err := s.readLoop(runCtx)
	if errors.Is(err, io.EOF) {
		s.logger.DebugContext(ctx, "worker: channel closed, draining")
		s.drain(runCtx)
		err = nil
	}

	cancel()
	s.shutdown(context.WithoutCancel(ctx))

	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Close releases engines the runtime created.
func (r *Runtime) Close(ctx context.Context) error {
	if r.wasm != nil {
		return r.wasm.Close(ctx)
	}
	return nil
}
