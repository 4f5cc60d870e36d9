package ports

import "github.com/Bind-Forward/port/domain/entities"

// SchemaParser parses raw schema document bytes into a Schema.
type SchemaParser interface {
	// Parse decodes YAML or JSON bytes into a Schema struct.
	Parse(data []byte) (*entities.Schema, error)
}
