package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/Bind-Forward/port/domain/entities"
	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
)

// Model is a loaded model ready to be invoked.
type Model interface {
	// Invoke runs the model on one payload. The result may be a
	// ports.Awaitable; callers resolve it.
	Invoke(ctx context.Context, payload entities.CallPayload) (any, error)

	// Close releases what loading acquired.
	Close(ctx context.Context) error
}

// Invoke calls m on its own goroutine and turns the outcome into a reply.
// Panics become invocation errors, awaitable results are resolved and a
// call whose context ends is answered at once with the context's cause,
// even if the model ignores ctx. entry labels the model in errors.
func Invoke(ctx context.Context, m Model, entry string, payload entities.CallPayload) entities.Outcome {
	o, _ := invoke(ctx, m, entry, payload)
	return o
}

// invoke is Invoke that also returns a channel closed once the model's
// goroutine has actually returned, which may be after the outcome when the
// model ignores ctx.
func invoke(ctx context.Context, m Model, entry string, payload entities.CallPayload) (entities.Outcome, <-chan struct{}) {
	returned := make(chan struct{})
	if ctx.Err() != nil {
		close(returned)
		return entities.Failure(domainerrors.ToErrorDetail(context.Cause(ctx))), returned
	}

	type result struct {
		value any
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer close(returned)
		defer func() {
			if rec := recover(); rec != nil {
				stack := debug.Stack()
				done <- result{err: &domainerrors.InvocationError{
					Entry: entry,
					Err:   &domainerrors.PanicError{Value: rec, Stack: stack},
					Stack: string(stack),
				}}
			}
		}()
		v, err := m.Invoke(ctx, payload)
		if err == nil {
			if aw, ok := v.(ports.Awaitable); ok {
				v, err = aw.Await(ctx)
			}
		}
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			return entities.Success(r.value), returned
		}
		if ctx.Err() != nil {
			return entities.Failure(domainerrors.ToErrorDetail(context.Cause(ctx))), returned
		}
		return entities.Failure(domainerrors.ToErrorDetail(asInvocationError(entry, r.err))), returned
	case <-ctx.Done():
		return entities.Failure(domainerrors.ToErrorDetail(context.Cause(ctx))), returned
	}
}

// funcModel adapts a resolved callable to the descriptor's argument style.
type funcModel struct {
	fn     ports.Func
	module ports.Module
	label  string
	style  entities.ArgumentStyle
}

// Invoke spreads positional payloads for positional models and passes
// mapping payloads whole to single-object models. A payload of the other
// shape is passed unchanged as the only argument.
func (m *funcModel) Invoke(ctx context.Context, p entities.CallPayload) (any, error) {
	if m.style == entities.ArgsPositional && p.IsPositional() {
		return m.fn(ctx, p.Args...)
	}
	return m.fn(ctx, p.Value())
}

func (m *funcModel) Close(ctx context.Context) error {
	if m.module == nil {
		return nil
	}
	return m.module.Close(ctx)
}

// ArgsGlobal is bound to the argument list of positional foreign calls.
const ArgsGlobal = "args"

// foreignModel re-runs a whole script per call in one shared environment.
// Globals set by a call stay visible to every later call.
type foreignModel struct {
	interp ports.ForeignInterpreter
	env    ports.ExecutionEnvironment
	name   string
	source []byte

	mu sync.Mutex
}

func (m *foreignModel) Invoke(ctx context.Context, p entities.CallPayload) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.IsPositional() {
		if err := m.env.SetGlobal(ArgsGlobal, p.Args); err != nil {
			return nil, &domainerrors.InvocationError{Entry: m.name, Err: fmt.Errorf("bind %s: %w", ArgsGlobal, err)}
		}
	} else {
		keys := make([]string, 0, len(p.Params))
		for k := range p.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := m.env.SetGlobal(k, p.Params[k]); err != nil {
				return nil, &domainerrors.InvocationError{Entry: m.name, Err: fmt.Errorf("bind %s: %w", k, err)}
			}
		}
	}

	v, err := m.interp.Run(ctx, m.env, m.name, m.source)
	if err != nil {
		return nil, asInvocationError(m.name, err)
	}
	return v, nil
}

func (m *foreignModel) Close(context.Context) error {
	return nil
}

// asInvocationError keeps structured errors and wraps the rest.
func asInvocationError(entry string, err error) error {
	var de domainerrors.DetailedError
	if errors.As(err, &de) {
		return err
	}
	return &domainerrors.InvocationError{Entry: entry, Err: err}
}
