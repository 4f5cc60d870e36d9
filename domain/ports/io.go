package ports

import (
	"context"

	"github.com/Bind-Forward/port/domain/entities"
)

// InputSource yields the current value of one declared input.
type InputSource interface {
	Value(ctx context.Context) (any, error)
}

// InputUpdater is implemented by input sources a model result may update.
type InputUpdater interface {
	Update(ctx context.Context, value any) error
}

// OutputSink displays a model result for one declared output.
type OutputSink interface {
	Render(ctx context.Context, value any, output entities.OutputSpec) error
}

// InputSourceFunc adapts a function to InputSource.
type InputSourceFunc func(ctx context.Context) (any, error)

// Value implements InputSource.
func (f InputSourceFunc) Value(ctx context.Context) (any, error) {
	return f(ctx)
}

// OutputSinkFunc adapts a function to OutputSink.
type OutputSinkFunc func(ctx context.Context, value any, output entities.OutputSpec) error

// Render implements OutputSink.
func (f OutputSinkFunc) Render(ctx context.Context, value any, output entities.OutputSpec) error {
	return f(ctx, value, output)
}
