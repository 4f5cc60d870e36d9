package native

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture(t *testing.T) {
	t.Run("go resolves", func(t *testing.T) {
		f := Go(context.Background(), func(context.Context) (any, error) { return 7, nil })
		v, err := f.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("first resolve wins", func(t *testing.T) {
		f := NewFuture()
		f.Resolve(1, nil)
		f.Resolve(2, nil)
		<-f.Done()
		v, _ := f.Await(context.Background())
		assert.Equal(t, 1, v)
	})

	t.Run("await honors context", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := NewFuture().Await(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
