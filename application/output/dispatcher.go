// Package output routes model results to the declared outputs of a schema.
package output

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/domain/ports"
)

// Output types with special rendering.
const (
	TypeText = "text"
	TypeJSON = "json"
	TypeSVG  = "svg"
	TypeFile = "file"
)

var (
	rawOutput  = entities.OutputSpec{Type: TypeJSON}
	textOutput = entities.OutputSpec{Type: TypeText}
)

// Dispatcher fans one result out to a sink, one Render per output.
type Dispatcher struct {
	sink    ports.OutputSink
	logger  *slog.Logger
	updates map[string]ports.InputUpdater
	outputs []entities.OutputSpec
	inputs  []string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithInputs lets mapping results update inputs whose source implements
// ports.InputUpdater.
func WithInputs(sources map[string]ports.InputSource) Option {
	return func(d *Dispatcher) {
		for name, src := range sources {
			if u, ok := src.(ports.InputUpdater); ok {
				d.updates[name] = u
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a Dispatcher for the outputs and inputs of schema.
func NewDispatcher(schema *entities.Schema, sink ports.OutputSink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:    sink,
		logger:  slog.Default(),
		updates: make(map[string]ports.InputUpdater),
		outputs: schema.Outputs,
		inputs:  schema.InputNames(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch routes value:
//
//   - a list with one element per output goes out by index, as does a list
//     whose first element is such a list;
//   - any other list goes to the first output whole;
//   - a mapping goes out per output name and updates inputs it names; a
//     mapping that matches nothing is rendered whole as JSON;
//   - anything else goes to the first output.
func (d *Dispatcher) Dispatch(ctx context.Context, value any) error {
	switch v := value.(type) {
	case []any:
		if items, ok := d.perOutput(v); ok {
			var errs []error
			for i, out := range d.outputs {
				errs = append(errs, d.sink.Render(ctx, items[i], out))
			}
			return errors.Join(errs...)
		}
		return d.sink.Render(ctx, v, d.first(rawOutput))

	case map[string]any:
		return d.dispatchMapping(ctx, v)

	default:
		if len(d.outputs) == 0 {
			return d.sink.Render(ctx, v, textOutput)
		}
		return d.sink.Render(ctx, v, d.outputs[0])
	}
}

func (d *Dispatcher) perOutput(v []any) ([]any, bool) {
	n := len(d.outputs)
	if n == 0 {
		return nil, false
	}
	if len(v) == n {
		return v, true
	}
	if len(v) > 0 {
		if inner, ok := v[0].([]any); ok && len(inner) == n {
			return inner, true
		}
	}
	return nil, false
}

func (d *Dispatcher) dispatchMapping(ctx context.Context, v map[string]any) error {
	var errs []error
	matched := false

	for _, out := range d.outputs {
		if out.Name == "" {
			continue
		}
		if item, ok := v[out.Name]; ok {
			errs = append(errs, d.sink.Render(ctx, item, out))
			matched = true
		}
	}

	for _, name := range d.inputs {
		item, ok := v[name]
		if !ok {
			continue
		}
		matched = true
		u, ok := d.updates[name]
		if !ok {
			d.logger.DebugContext(ctx, "result names an input that cannot be updated", "input", name)
			continue
		}
		errs = append(errs, u.Update(ctx, item))
	}

	if !matched {
		errs = append(errs, d.sink.Render(ctx, v, rawOutput))
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) first(fallback entities.OutputSpec) entities.OutputSpec {
	if len(d.outputs) == 0 {
		return fallback
	}
	return d.outputs[0]
}
