package native

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecoveryMiddleware(t *testing.T) {
	reg, err := NewRegistry(
		WithMiddleware(PanicRecoveryMiddleware()),
		WithFunc("boom", func(context.Context) (any, error) { panic("kaboom") }),
	)
	require.NoError(t, err)

	mod, err := NewEngine(WithNamespace("ns", reg)).Load(context.Background(), "ns", nil)
	require.NoError(t, err)
	fn, err := mod.Function("boom")
	require.NoError(t, err)

	_, err = fn(context.Background())
	var pe *domainerrors.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next ports.Func) ports.Func {
			return func(ctx context.Context, args ...any) (any, error) {
				order = append(order, name)
				return next(ctx, args...)
			}
		}
	}
	reg, err := NewRegistry(
		WithMiddleware(tag("first"), tag("second")),
		WithFunc("add", add),
	)
	require.NoError(t, err)

	_, err = reg.wrap("add", reg.entries["add"].fn)(context.Background(), int64(1), int64(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reg, err := NewRegistry(
		WithMiddleware(LoggingMiddleware(logger)),
		WithFunc("fail", func(context.Context) error { return errors.New("bad input") }),
	)
	require.NoError(t, err)

	_, err = reg.wrap("fail", reg.entries["fail"].fn)(context.Background())
	require.Error(t, err)
	assert.Contains(t, buf.String(), "model=fail")
	assert.Contains(t, buf.String(), "bad input")
}

func TestCallContext(t *testing.T) {
	cc := NewCallContext(context.Background(), "add")
	assert.Equal(t, "add", cc.ModelName())
	assert.Same(t, cc, CallContextFrom(cc, "other"))
	assert.Equal(t, "other", CallContextFrom(context.Background(), "other").ModelName())
}
