package native

import (
	"context"
	"testing"

	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doubler struct {
	calls int
}

func (d *doubler) Predict(_ context.Context, x int64) (int64, error) {
	d.calls++
	return x * 2, nil
}

func (d *doubler) Calls(context.Context) (int, error) {
	return d.calls, nil
}

func demoEngine(t *testing.T) *Engine {
	t.Helper()
	reg, err := NewRegistry(
		WithMiddleware(PanicRecoveryMiddleware()),
		WithFunc("add", add),
		WithClass("Doubler", func() any { return &doubler{} }),
		WithFactory("scaler", func(ctx context.Context) (ports.Func, error) {
			return func(_ context.Context, args ...any) (any, error) {
				return args[0].(int64) * 3, nil
			}, nil
		}),
	)
	require.NoError(t, err)
	return NewEngine(WithNamespace("demo", reg))
}

func loadDemo(t *testing.T) ports.Module {
	t.Helper()
	mod, err := demoEngine(t).Load(context.Background(), "demo.go", []byte(" demo\n"))
	require.NoError(t, err)
	return mod
}

func TestEngine_Load(t *testing.T) {
	e := demoEngine(t)

	t.Run("namespace from name", func(t *testing.T) {
		mod, err := e.Load(context.Background(), "demo", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Doubler", "add", "scaler"}, mod.Exports())
	})

	t.Run("unknown namespace", func(t *testing.T) {
		_, err := e.Load(context.Background(), "x", []byte("missing"))
		var re *domainerrors.ResolutionError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, []string{"demo"}, re.Available)
	})
}

func TestModule_Function(t *testing.T) {
	mod := loadDemo(t)

	fn, err := mod.Function("add")
	require.NoError(t, err)
	v, err := fn(context.Background(), int64(3), int64(4))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = mod.Function("Doubler")
	var re *domainerrors.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.ErrorContains(t, err, "not a function")

	_, err = mod.Function("predict")
	assert.ErrorAs(t, err, &re)
}

func TestModule_Construct(t *testing.T) {
	mod := loadDemo(t)
	ctx := context.Background()

	t.Run("lowercase method binds exported method", func(t *testing.T) {
		predict, err := mod.Construct(ctx, "Doubler", "predict")
		require.NoError(t, err)

		v, err := predict(ctx, int64(21))
		require.NoError(t, err)
		assert.Equal(t, int64(42), v)
	})

	t.Run("each construct is a fresh instance", func(t *testing.T) {
		predict, err := mod.Construct(ctx, "Doubler", "Predict")
		require.NoError(t, err)
		_, err = predict(ctx, int64(1))
		require.NoError(t, err)

		calls, err := mod.Construct(ctx, "Doubler", "calls")
		require.NoError(t, err)
		v, err := calls(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, v)
	})

	t.Run("missing method", func(t *testing.T) {
		_, err := mod.Construct(ctx, "Doubler", "run")
		var re *domainerrors.ResolutionError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "Doubler.run", re.Name)
		assert.Contains(t, re.Available, "predict")
	})
}

func TestModule_Produce(t *testing.T) {
	mod := loadDemo(t)
	ctx := context.Background()

	model, err := mod.Produce(ctx, "scaler")
	require.NoError(t, err)
	v, err := model(ctx, int64(5))
	require.NoError(t, err)
	assert.Equal(t, int64(15), v)

	_, err = mod.Produce(ctx, "add")
	assert.ErrorContains(t, err, "not a factory")
}
