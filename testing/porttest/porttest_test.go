package porttest_test

import (
	"context"
	"testing"

	port "github.com/Bind-Forward/port"
	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/host"
	"github.com/Bind-Forward/port/infrastructure/native"
	"github.com/Bind-Forward/port/internal/testutil"
	"github.com/Bind-Forward/port/testing/porttest"
	"github.com/Bind-Forward/port/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schema(entry, container string, inputs ...entities.InputSpec) *entities.Schema {
	return &entities.Schema{
		Model: entities.ModelSpec{
			Type:      string(entities.KindFunction),
			Code:      testutil.ModelSource,
			Name:      entry,
			Container: container,
		},
		Inputs: inputs,
	}
}

func TestRunSchemaTests(t *testing.T) {
	porttest.RunSchemaTests(t, schema("add", "args", entities.InputSpec{Name: "a"}, entities.InputSpec{Name: "b"}), []porttest.TestCase{
		{
			Name:   "integers",
			Inputs: map[string]any{"a": 3, "b": 4},
			Validate: func(t *testing.T, o entities.Outcome) {
				porttest.AssertSuccess(t, o)
				porttest.AssertValue(t, o, 7)
			},
		},
		{
			Name:   "floats",
			Inputs: map[string]any{"a": 0.5, "b": 0.25},
			Validate: func(t *testing.T, o entities.Outcome) {
				porttest.AssertValue(t, o, 0.75)
			},
		},
		{
			Name:   "type error",
			Inputs: map[string]any{"a": "x", "b": 1},
			Validate: func(t *testing.T, o entities.Outcome) {
				porttest.AssertFailure(t, o, entities.ErrorTypeInvocation)
			},
		},
	})
}

func TestHarness_ObjectPayload(t *testing.T) {
	h := porttest.New(t, schema("area", "", entities.InputSpec{Name: "x"}, entities.InputSpec{Name: "y"}))

	first := h.Run(t, map[string]any{"x": 2, "y": 5})
	second := h.Run(t, map[string]any{"x": 3, "y": 3})
	assert.Greater(t, second, first)

	// Outcomes are kept by id, so they can be awaited in any order.
	porttest.AssertValue(t, h.Await(t, second), 9)
	porttest.AssertValue(t, h.Await(t, first), 10)
	assert.Equal(t, entities.HostReady, h.Controller().State())
}

type rect struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
	Unit   string  `json:"unit" validate:"omitempty,oneof=cm m"`
}

func rectArea(_ context.Context, p port.Params) (float64, error) {
	var r rect
	if err := port.ValidateParams(p, &r); err != nil {
		return 0, err
	}
	return r.Width * r.Height, nil
}

func TestRunSchemaTests_NativeModel(t *testing.T) {
	reg, err := native.NewRegistry(native.WithFunc("area", rectArea))
	require.NoError(t, err)

	s := &entities.Schema{
		Model: entities.ModelSpec{
			Type:    string(entities.KindFunction),
			Runtime: string(entities.RuntimeNative),
			Code:    "shapes",
			Name:    "area",
		},
		Inputs: []entities.InputSpec{{Name: "width"}, {Name: "height"}, {Name: "unit"}},
	}
	porttest.RunSchemaTests(t, s, []porttest.TestCase{
		{
			Name:   "valid",
			Inputs: map[string]any{"width": 2, "height": 2.5, "unit": "m"},
			Validate: func(t *testing.T, o entities.Outcome) {
				porttest.AssertValue(t, o, 5.0)
			},
		},
		{
			Name:   "rejected by validator",
			Inputs: map[string]any{"width": 0, "height": 1, "unit": "m"},
			Validate: func(t *testing.T, o entities.Outcome) {
				porttest.AssertFailure(t, o, entities.ErrorTypeInvocation)
				if assert.NotNil(t, o.Error) {
					assert.Contains(t, o.Error.Message, "params validation failed")
				}
			},
		},
		{
			Name:   "wrong type",
			Inputs: map[string]any{"width": "wide", "height": 1, "unit": "cm"},
			Validate: func(t *testing.T, o entities.Outcome) {
				porttest.AssertFailure(t, o, entities.ErrorTypeInvocation)
			},
		},
	}, host.WithWorkerOptions(worker.WithNativeModels("shapes", reg)))
}
