package native

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func TestWrapFunc_Conversions(t *testing.T) {
	ctx := context.Background()

	t.Run("int64 to int", func(t *testing.T) {
		fn, err := wrapFunc(func(_ context.Context, a, b int) (int, error) { return a + b, nil })
		require.NoError(t, err)

		v, err := fn(ctx, int64(3), int64(4))
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("map to struct", func(t *testing.T) {
		fn, err := wrapFunc(func(_ context.Context, p point) (float64, error) { return p.X * p.Y, nil })
		require.NoError(t, err)

		v, err := fn(ctx, map[string]any{"x": int64(2), "y": int64(5)})
		require.NoError(t, err)
		assert.Equal(t, 10.0, v)
	})

	t.Run("nil to zero", func(t *testing.T) {
		fn, err := wrapFunc(func(_ context.Context, s []string) (int, error) { return len(s), nil })
		require.NoError(t, err)

		v, err := fn(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, v)
	})

	t.Run("error only", func(t *testing.T) {
		fn, err := wrapFunc(func(_ context.Context) error { return errors.New("nope") })
		require.NoError(t, err)

		v, err := fn(ctx)
		assert.Nil(t, v)
		assert.EqualError(t, err, "nope")
	})

	t.Run("arity mismatch", func(t *testing.T) {
		fn, err := wrapFunc(add)
		require.NoError(t, err)

		_, err = fn(ctx, int64(1))
		assert.ErrorContains(t, err, "expects 2 arguments, got 1")
	})

	t.Run("integral float to int", func(t *testing.T) {
		fn, err := wrapFunc(func(_ context.Context, n int8) (int8, error) { return n, nil })
		require.NoError(t, err)

		v, err := fn(ctx, 3.0)
		require.NoError(t, err)
		assert.Equal(t, int8(3), v)
	})

	t.Run("narrowing rejected", func(t *testing.T) {
		fn, err := wrapFunc(func(_ context.Context, n int8) (int8, error) { return n, nil })
		require.NoError(t, err)

		_, err = fn(ctx, 2.7)
		assert.ErrorContains(t, err, "not an integer")

		_, err = fn(ctx, int64(300))
		assert.ErrorContains(t, err, "out of range")

		_, err = fn(ctx, int64(-129))
		assert.ErrorContains(t, err, "out of range")
	})

	t.Run("negative to unsigned", func(t *testing.T) {
		fn, err := wrapFunc(func(_ context.Context, n uint) (uint, error) { return n, nil })
		require.NoError(t, err)

		_, err = fn(ctx, int64(-1))
		assert.ErrorContains(t, err, "out of range")
	})

	t.Run("float32 overflow", func(t *testing.T) {
		fn, err := wrapFunc(func(_ context.Context, f float32) (float32, error) { return f, nil })
		require.NoError(t, err)

		_, err = fn(ctx, 1e300)
		assert.ErrorContains(t, err, "out of range")

		v, err := fn(ctx, 1.5)
		require.NoError(t, err)
		assert.Equal(t, float32(1.5), v)
	})

	t.Run("incompatible argument", func(t *testing.T) {
		fn, err := wrapFunc(add)
		require.NoError(t, err)

		_, err = fn(ctx, "three", int64(4))
		assert.ErrorContains(t, err, "argument 0")
	})
}

func TestTyped(t *testing.T) {
	area := Typed(func(_ context.Context, p point) (float64, error) {
		return p.X * p.Y, nil
	})

	v, err := area(context.Background(), map[string]any{"x": int64(2), "y": int64(5)})
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	_, err = area(context.Background())
	assert.ErrorContains(t, err, "expects 1 argument")
}
