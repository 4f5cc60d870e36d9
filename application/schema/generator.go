// Package schema generates JSON Schemas describing port documents.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/invopop/jsonschema"
)

// DocumentSchemaID identifies the generated schema of a port document.
const DocumentSchemaID = "https://port.dev/schema/document.json"

// GenerateSchema creates a JSON schema from a Go struct.
// It uses the `invopop/jsonschema` library to reflect on the struct
// and generate a standard JSON Schema (Draft 2020-12).
func GenerateSchema(v interface{}) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
	}
	return marshal(reflector.Reflect(v))
}

// DocumentSchema returns the JSON Schema of a port document. Input types
// are restricted to the declared widgets and unknown fields are rejected.
func DocumentSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	s := reflector.Reflect(&entities.Schema{})
	s.ID = DocumentSchemaID
	s.Title = "Port document"

	if input, ok := s.Definitions["InputSpec"]; ok {
		if prop, ok := input.Properties.Get("type"); ok {
			prop.Enum = []any{
				string(entities.InputInt), string(entities.InputFloat), string(entities.InputString),
				string(entities.InputCheckbox), string(entities.InputRange), string(entities.InputText),
				string(entities.InputSelect), string(entities.InputCategorical), string(entities.InputFile),
				string(entities.InputImage),
			}
		}
	}
	return marshal(s)
}

func marshal(s *jsonschema.Schema) ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}
