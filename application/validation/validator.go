// Package validation validates raw port documents against their JSON Schema
// before they are bound to Go types.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/Bind-Forward/port/application/schema"
	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/domain/ports"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DocumentValidator implements ports.DocumentValidator with a compiled
// JSON Schema.
type DocumentValidator struct {
	schema *jsonschema.Schema
}

var _ ports.DocumentValidator = (*DocumentValidator)(nil)

// NewDocumentValidator compiles the port document schema.
func NewDocumentValidator() (*DocumentValidator, error) {
	raw, err := schema.DocumentSchema()
	if err != nil {
		return nil, err
	}
	return NewValidator(schema.DocumentSchemaID, raw)
}

// NewValidator compiles a JSON Schema registered under id.
func NewValidator(id string, raw []byte) (*DocumentValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(id, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource %s: %w", id, err)
	}
	sch, err := compiler.Compile(id)
	if err != nil {
		return nil, fmt.Errorf("invalid schema %s: %w", id, err)
	}
	return &DocumentValidator{schema: sch}, nil
}

// Validate checks a decoded document. Schema violations are reported in the
// result; the error is reserved for documents that cannot be prepared.
func (v *DocumentValidator) Validate(doc any) (*entities.ValidationResult, error) {
	result := &entities.ValidationResult{Valid: true}

	// Round trip through JSON so every number is a json.Number and every
	// mapping a map[string]any.
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare validation object: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var obj any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("failed to prepare validation object: %w", err)
	}

	if err := v.schema.Validate(obj); err != nil {
		result.Valid = false
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			result.Errors = append(result.Errors, entities.ValidationError{Message: err.Error()})
			return result, nil
		}
		result.Errors = leafErrors(ve)
	}
	return result, nil
}

// leafErrors flattens the error tree to its leaves, which name the exact
// failing location.
func leafErrors(ve *jsonschema.ValidationError) []entities.ValidationError {
	var out []entities.ValidationError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := e.InstanceLocation
			if field == "" {
				field = "/"
			}
			out = append(out, entities.ValidationError{Field: field, Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
