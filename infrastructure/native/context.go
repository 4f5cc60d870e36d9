package native

import (
	"context"
)

// CallContext wraps a context.Context with the name of the model being
// invoked, so middleware can label what it observes.
type CallContext interface {
	context.Context

	// ModelName returns the registered name of the invoked model.
	ModelName() string
}

type callContext struct {
	context.Context
	model string
}

// NewCallContext creates a CallContext wrapping the given context.
func NewCallContext(ctx context.Context, model string) CallContext {
	return &callContext{Context: ctx, model: model}
}

func (c *callContext) ModelName() string {
	return c.model
}

// CallContextFrom extracts a CallContext from ctx, creating one when ctx
// is not already a CallContext.
func CallContextFrom(ctx context.Context, model string) CallContext {
	if cc, ok := ctx.(CallContext); ok {
		return cc
	}
	return NewCallContext(ctx, model)
}
