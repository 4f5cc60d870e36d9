// Package porttest runs schemas against an in-process worker in tests and
// collects the outcome of every call by id.
package porttest

import (
	"context"
	"testing"
	"time"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/Bind-Forward/port/host"
	"github.com/Bind-Forward/port/internal/testutil"
)

// DefaultTimeout bounds model loading and every awaited call.
const DefaultTimeout = 10 * time.Second

// TestCase defines one run of a schema.
type TestCase struct {
	Name     string
	Inputs   map[string]any
	Validate func(t *testing.T, o entities.Outcome)
}

type delivery struct {
	outcome entities.Outcome
	id      uint64
}

// Harness drives one Controller.
type Harness struct {
	c         *host.Controller
	delivered chan delivery
	outcomes  map[uint64]entities.Outcome
}

// New initializes schema on a fresh Controller and waits until the model is
// ready. The controller is closed when the test ends.
func New(t *testing.T, schema *entities.Schema, opts ...host.Option) *Harness {
	t.Helper()
	h := &Harness{
		delivered: make(chan delivery, 64),
		outcomes:  map[uint64]entities.Outcome{},
	}
	base := []host.Option{
		host.WithLogger(testutil.Logger()),
		host.WithResultHandler(func(id uint64, v any) {
			h.delivered <- delivery{id: id, outcome: entities.Success(v)}
		}),
		host.WithErrorHandler(func(id uint64, e *entities.ErrorDetail) {
			h.delivered <- delivery{id: id, outcome: entities.Failure(e)}
		}),
	}
	h.c = host.New(append(base, opts...)...)
	t.Cleanup(func() { _ = h.c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	if err := h.c.Initialize(ctx, schema, ""); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := h.c.WaitReady(ctx); err != nil {
		t.Fatalf("model did not load: %v", err)
	}
	return h
}

// Controller returns the controller under test.
func (h *Harness) Controller() *host.Controller {
	return h.c
}

// Run binds inputs as constant sources and sends one call.
func (h *Harness) Run(t *testing.T, inputs map[string]any) uint64 {
	t.Helper()
	sources := make(map[string]ports.InputSource, len(inputs))
	for name, v := range inputs {
		sources[name] = constantSource(v)
	}
	h.c.BindAll(sources)

	id, err := h.c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return id
}

// Await returns the outcome of call id.
func (h *Harness) Await(t *testing.T, id uint64) entities.Outcome {
	t.Helper()
	timeout := time.After(DefaultTimeout)
	for {
		if o, ok := h.outcomes[id]; ok {
			return o
		}
		select {
		case d := <-h.delivered:
			h.outcomes[d.id] = d.outcome
		case <-timeout:
			t.Fatalf("no reply for call %d", id)
		}
	}
}

// Call runs the model once and waits for its outcome.
func (h *Harness) Call(t *testing.T, inputs map[string]any) entities.Outcome {
	t.Helper()
	return h.Await(t, h.Run(t, inputs))
}

// RunSchemaTests loads schema once and runs every case against it.
func RunSchemaTests(t *testing.T, schema *entities.Schema, tests []TestCase, opts ...host.Option) {
	t.Helper()
	h := New(t, schema, opts...)
	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			o := h.Call(t, tc.Inputs)
			if tc.Validate != nil {
				tc.Validate(t, o)
			}
		})
	}
}

// AssertSuccess asserts the call returned a value.
func AssertSuccess(t *testing.T, o entities.Outcome) {
	t.Helper()
	if !o.IsSuccess() {
		t.Errorf("expected success, got %v", o.Error)
	}
}

// AssertFailure asserts the call failed with an error of errType.
func AssertFailure(t *testing.T, o entities.Outcome, errType string) {
	t.Helper()
	if !o.IsFailure() {
		t.Errorf("expected %s failure, got value %v", errType, o.Value)
		return
	}
	if o.Error.Type != errType {
		t.Errorf("expected %s failure, got %v", errType, o.Error)
	}
}

// AssertValue asserts the call returned expected. Numbers compare by value.
func AssertValue(t *testing.T, o entities.Outcome, expected any) {
	t.Helper()
	if !o.IsSuccess() {
		t.Errorf("expected %v, got %v", expected, o.Error)
		return
	}
	testutil.AssertNumber(t, expected, o.Value)
}

func constantSource(v any) ports.InputSource {
	return ports.InputSourceFunc(func(context.Context) (any, error) { return v, nil })
}
