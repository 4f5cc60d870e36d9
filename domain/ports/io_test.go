package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockFetcher is a mock implementation of Fetcher for testing.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, location string) ([]byte, error)
}

func (m *MockFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, location)
	}
	return []byte("def add(a, b):\n    return a + b\n"), nil
}

// Compile-time interface checks
var (
	_ Fetcher     = (*MockFetcher)(nil)
	_ InputSource = InputSourceFunc(nil)
	_ OutputSink  = OutputSinkFunc(nil)
)

func TestMockFetcher_ImplementsInterface(t *testing.T) {
	var f Fetcher = &MockFetcher{}

	src, err := f.Fetch(context.Background(), "model.star")
	require.NoError(t, err)
	assert.Contains(t, string(src), "def add")
}

func TestInputSourceFunc(t *testing.T) {
	src := InputSourceFunc(func(ctx context.Context) (any, error) {
		return int64(3), nil
	})

	v, err := src.Value(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestOutputSinkFunc(t *testing.T) {
	var got []string
	sink := OutputSinkFunc(func(ctx context.Context, value any, output entities.OutputSpec) error {
		got = append(got, output.Name)
		if value == nil {
			return errors.New("empty")
		}
		return nil
	})

	require.NoError(t, sink.Render(context.Background(), 1, entities.OutputSpec{Name: "sum"}))
	assert.Error(t, sink.Render(context.Background(), nil, entities.OutputSpec{Name: "none"}))
	assert.Equal(t, []string{"sum", "none"}, got)
}
