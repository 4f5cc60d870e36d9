package ports

import "github.com/Bind-Forward/port/domain/entities"

// DocumentValidator validates a raw, decoded schema document before it is
// bound to Go types.
type DocumentValidator interface {
	Validate(doc any) (*entities.ValidationResult, error)
}
