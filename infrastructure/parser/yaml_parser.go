// Package parser decodes schema documents.
package parser

import (
	"bytes"
	"fmt"

	"github.com/Bind-Forward/port/domain/entities"
	"github.com/Bind-Forward/port/domain/ports"
	"gopkg.in/yaml.v3"
)

// YamlSchemaParser implements SchemaParser for YAML. JSON documents are
// valid YAML and parse the same way.
type YamlSchemaParser struct{}

// NewYamlSchemaParser creates a new YamlSchemaParser.
func NewYamlSchemaParser() ports.SchemaParser {
	return &YamlSchemaParser{}
}

// Parse unmarshals document bytes into a normalized Schema. Unknown fields
// are rejected so typos in a document surface early.
func (p *YamlSchemaParser) Parse(data []byte) (*entities.Schema, error) {
	var schema entities.Schema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&schema); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	for i := range schema.Inputs {
		schema.Inputs[i].Default = normalizeValue(schema.Inputs[i].Default)
	}
	schema.Normalize()
	return &schema, nil
}

// Decode unmarshals document bytes into a generic value for document
// validation. Mapping keys become strings and integers int64, matching
// the shapes JSON decoding produces.
func Decode(data []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return normalizeValue(doc), nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case uint64:
		return float64(t)
	case []any:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeValue(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalizeValue(e)
		}
		return m
	default:
		return v
	}
}
