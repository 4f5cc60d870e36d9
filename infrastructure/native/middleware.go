package native

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	domainerrors "github.com/Bind-Forward/port/domain/errors"
	"github.com/Bind-Forward/port/domain/ports"
)

// Middleware wraps a model callable to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type Middleware func(next ports.Func) ports.Func

// PanicRecoveryMiddleware converts a panicking model into a *PanicError.
func PanicRecoveryMiddleware() Middleware {
	return func(next ports.Func) ports.Func {
		return func(ctx context.Context, args ...any) (v any, err error) {
			defer func() {
				if r := recover(); r != nil {
					v = nil
					err = &domainerrors.PanicError{Value: r, Stack: debug.Stack()}
				}
			}()
			return next(ctx, args...)
		}
	}
}

// LoggingMiddleware logs each invocation with its duration.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.Func) ports.Func {
		return func(ctx context.Context, args ...any) (any, error) {
			model := "unknown"
			if cc, ok := ctx.(CallContext); ok {
				model = cc.ModelName()
			}
			start := time.Now()
			v, err := next(ctx, args...)
			if err != nil {
				logger.WarnContext(ctx, "model call failed", "model", model, "error", err, "duration", time.Since(start))
			} else {
				logger.DebugContext(ctx, "model call completed", "model", model, "duration", time.Since(start))
			}
			return v, err
		}
	}
}
