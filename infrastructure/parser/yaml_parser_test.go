package parser

import (
	"testing"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scaleYAML = `
model:
  title: Scale
  type: class
  url: model.star
  name: Model
  autorun: true
inputs:
  - name: x
    type: int
    default: 3
  - name: factor
    type: range
    min: 0
    max: 1
    step: 0.1
    default: 0.5
    reactive: true
outputs:
  - name: y
    type: text
`

func TestYamlSchemaParser_Parse(t *testing.T) {
	s, err := NewYamlSchemaParser().Parse([]byte(scaleYAML))
	require.NoError(t, err)

	assert.Equal(t, "Scale", s.Model.Title)
	assert.True(t, s.Model.Autorun)
	assert.Equal(t, entities.DefaultInvocationMethod, s.Model.Method)
	require.NotNil(t, s.Model.Worker)
	assert.True(t, *s.Model.Worker)

	require.Len(t, s.Inputs, 2)
	assert.Equal(t, int64(3), s.Inputs[0].Default)
	assert.Equal(t, 0.5, s.Inputs[1].Default)
	require.NotNil(t, s.Inputs[1].Max)
	assert.Equal(t, 1.0, *s.Inputs[1].Max)
	assert.True(t, s.Inputs[1].Reactive)
	assert.Equal(t, []string{"x", "factor"}, s.InputNames())

	d := s.Descriptor()
	assert.Equal(t, entities.KindClass, d.Kind)
	assert.Equal(t, "model.star", d.SourceLocation)
}

func TestYamlSchemaParser_JSON(t *testing.T) {
	doc := `{"model": {"type": "function", "code": "def add(a, b):\n    return a + b\n", "name": "add", "container": "args", "worker": false}}`
	s, err := NewYamlSchemaParser().Parse([]byte(doc))
	require.NoError(t, err)

	assert.False(t, s.Model.Isolated())
	d := s.Descriptor()
	assert.Equal(t, entities.ArgsPositional, d.ArgumentStyle)
	assert.Contains(t, d.InlineSource, "def add")
}

func TestYamlSchemaParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", "model: [unclosed"},
		{"unknown field", "model:\n  type: function\n  colour: red\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYamlSchemaParser().Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestDecode(t *testing.T) {
	doc, err := Decode([]byte("model:\n  type: function\ninputs:\n  - name: x\n    default: 2\n"))
	require.NoError(t, err)

	want := map[string]any{
		"model":  map[string]any{"type": "function"},
		"inputs": []any{map[string]any{"name": "x", "default": int64(2)}},
	}
	assert.Equal(t, want, doc)
}
