package worker

import (
	"context"
	"testing"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nopLoader = LoaderFunc(func(context.Context, entities.ModelDescriptor) (Model, error) {
	return nil, nil
})

func TestLoaderRegistry_Register(t *testing.T) {
	r := newLoaderRegistry()

	require.NoError(t, r.Register(entities.KindFunction, nopLoader))
	assert.ErrorContains(t, r.Register(entities.KindFunction, nopLoader), "already registered")
	assert.ErrorContains(t, r.Register("", nopLoader), "empty")
	assert.ErrorContains(t, r.Register(entities.KindClass, nil), "nil")

	_, ok := r.Get(entities.KindFunction)
	assert.True(t, ok)
	_, ok = r.Get(entities.KindClass)
	assert.False(t, ok)
}

func TestLoaderRegistry_Replace(t *testing.T) {
	r := newLoaderRegistry(WithStrictMode(false))

	require.NoError(t, r.Register(entities.KindFunction, nopLoader))
	require.NoError(t, r.Register(entities.KindFunction, nopLoader))
	require.NoError(t, r.Register(entities.KindForeignScript, nopLoader))

	assert.Equal(t, []string{"foreign-script", "function"}, r.Kinds())
}
