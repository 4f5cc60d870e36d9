package native

import (
	"context"
	"sync"

	"github.com/Bind-Forward/port/domain/ports"
)

// Future is a result computed in the background. Models return one to
// reply asynchronously; the worker awaits it before sending the reply.
type Future struct {
	done  chan struct{}
	value any
	err   error
	once  sync.Once
}

var _ ports.Awaitable = (*Future)(nil)

// NewFuture returns an unresolved Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Go runs fn in a new goroutine and returns a Future for its result.
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) *Future {
	f := NewFuture()
	go func() {
		f.Resolve(fn(ctx))
	}()
	return f
}

// Resolve settles the Future. Only the first call has any effect.
func (f *Future) Resolve(value any, err error) {
	f.once.Do(func() {
		f.value, f.err = value, err
		close(f.done)
	})
}

// Done is closed once the Future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future resolves or ctx ends.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
