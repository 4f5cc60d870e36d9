package wazero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Bind-Forward/port/domain/entities"
	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/internal/abi"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// ErrUnsupported is returned for model kinds wasm modules cannot express.
var ErrUnsupported = errors.New("not supported by the wasm runtime")

// Engine compiles and instantiates wasm model sources. One Engine owns one
// wazero runtime; close it to release compiled code.
type Engine struct {
	runtime wazero.Runtime
	cfg     config
}

var _ ports.Engine = (*Engine)(nil)

// NewEngine creates a runtime with WASI and the host module registered.
// Guest calls are interrupted when their context ends.
func NewEngine(ctx context.Context, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.memoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}
	if err := registerHostModule(ctx, rt, cfg); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return &Engine{runtime: rt, cfg: cfg}, nil
}

// Close releases the runtime and every module loaded from it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Load compiles source and instantiates it once, so a module that fails to
// start is reported as a load failure.
func (e *Engine) Load(ctx context.Context, name string, source []byte) (ports.Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	m := &module{engine: e, compiled: compiled, name: name}
	if _, err := m.acquire(ctx); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}
	return m, nil
}

// module is one compiled source with a single live instance. Calls share the
// instance and are serialized; an instance closed by a canceled call is
// replaced on the next call.
type module struct {
	engine   *Engine
	compiled wazero.CompiledModule
	instance api.Module
	name     string
	mu       sync.Mutex
}

// acquire returns the live instance, instantiating a fresh one when needed.
// Callers hold mu, except Load which has no concurrent users yet.
func (m *module) acquire(ctx context.Context) (api.Module, error) {
	if m.instance != nil && !m.instance.IsClosed() {
		return m.instance, nil
	}
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize")
	inst, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate %s: %w", m.name, err)
	}
	m.instance = inst
	return inst, nil
}

func (m *module) Exports() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		if name == abi.AllocateExport {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *module) Function(name string) (ports.Func, error) {
	def, ok := m.compiled.ExportedFunctions()[name]
	if !ok {
		return nil, &domainerrors.ResolutionError{Name: name, Available: m.Exports()}
	}
	params, results := def.ParamTypes(), def.ResultTypes()

	_, hasAllocate := m.compiled.ExportedFunctions()[abi.AllocateExport]
	switch {
	case hasAllocate && abi.IsPacked(params, results):
		return m.jsonCall(name), nil
	case abi.IsNumeric(params) && abi.IsNumeric(results):
		return m.numericCall(name, params, results), nil
	default:
		return nil, fmt.Errorf("export %s has an unsupported signature", name)
	}
}

func (m *module) Construct(context.Context, string, string) (ports.Func, error) {
	return nil, fmt.Errorf("class models: %w", ErrUnsupported)
}

func (m *module) Produce(context.Context, string) (ports.Func, error) {
	return nil, fmt.Errorf("async-init models: %w", ErrUnsupported)
}

func (m *module) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.instance != nil {
		_ = m.instance.Close(ctx)
		m.instance = nil
	}
	return m.compiled.Close(ctx)
}

func (m *module) numericCall(name string, params, results []api.ValueType) ports.Func {
	return func(ctx context.Context, args ...any) (any, error) {
		stack, err := abi.EncodeArgs(params, args)
		if err != nil {
			return nil, &domainerrors.InvocationError{Entry: name, Err: err}
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		inst, err := m.acquire(ctx)
		if err != nil {
			return nil, err
		}
		out, err := inst.ExportedFunction(name).Call(ctx, stack...)
		if err != nil {
			return nil, m.callError(ctx, name, err)
		}
		return abi.DecodeResults(results, out), nil
	}
}

func (m *module) jsonCall(name string) ports.Func {
	return func(ctx context.Context, args ...any) (any, error) {
		if args == nil {
			args = []any{}
		}
		input, err := json.Marshal(args)
		if err != nil {
			return nil, &domainerrors.InvocationError{Entry: name, Err: fmt.Errorf("failed to encode arguments: %w", err)}
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		inst, err := m.acquire(ctx)
		if err != nil {
			return nil, err
		}
		packed, err := abi.WriteBytes(ctx, inst, input)
		if err != nil {
			return nil, m.callError(ctx, name, err)
		}
		ptr, length, _ := abi.UnpackPtrLen(packed)

		out, err := inst.ExportedFunction(name).Call(ctx, uint64(ptr), uint64(length))
		if err != nil {
			return nil, m.callError(ctx, name, err)
		}
		data, err := abi.ReadBytes(inst, out[0], m.engine.cfg.maxResponseSize)
		if err != nil {
			return nil, &domainerrors.InvocationError{Entry: name, Err: err}
		}
		if len(data) == 0 {
			return nil, nil
		}
		v, err := entities.DecodeValue(data)
		if err != nil {
			return nil, &domainerrors.InvocationError{Entry: name, Err: fmt.Errorf("malformed result: %w", err)}
		}
		return v, nil
	}
}

// callError reports an interrupted call as the context error so callers can
// tell cancellation and timeouts from traps.
func (m *module) callError(ctx context.Context, name string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &domainerrors.InvocationError{Entry: name, Err: err}
}
