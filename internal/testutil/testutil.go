// Package testutil provides fixtures and assertions shared by the tests of
// this module.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ModelSource is a starlark model source with one entry of every kind.
const ModelSource = `
def add(a, b):
    return a + b

def area(p):
    return p["x"] * p["y"]

def Model():
    def predict(x):
        return x * 2
    return struct(predict = predict)

def make_scaler():
    def model(x):
        return x * 3
    return model

def status_like(p):
    return {"_status": "loaded"}
`

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WriteFile writes content to name under dir and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// RequireErrorType asserts d is an error detail of the given type.
func RequireErrorType(t *testing.T, d *entities.ErrorDetail, errType string) {
	t.Helper()
	require.NotNil(t, d, "expected a %s error", errType)
	require.Equal(t, errType, d.Type, d.Error())
}

// AssertNumber compares numbers regardless of their Go type, since decoded
// values are int64 or float64 depending on how they were written.
func AssertNumber(t *testing.T, expected, actual any, msgAndArgs ...any) bool {
	t.Helper()
	e, ok := ToFloat64(expected)
	if !ok {
		return assert.Equal(t, expected, actual, msgAndArgs...)
	}
	a, ok := ToFloat64(actual)
	if !ok {
		return assert.Fail(t, "not a number", "got %T %v", actual, actual)
	}
	return assert.InDelta(t, e, a, 1e-9, msgAndArgs...)
}

// ToFloat64 converts the numeric types values decode to.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
