package entities

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationResult collects the problems found in a document.
type ValidationResult struct {
	Errors []ValidationError
	Valid  bool
}

// ValidationError is one problem at one location.
type ValidationError struct {
	Field   string
	Message string
}

// Err folds the result into a single error, or nil when valid.
func (r *ValidationResult) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "\n- %s: %s", e.Field, e.Message)
	}
	return errors.New(b.String())
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(descriptorRules, ModelDescriptor{})
	return v
}

// descriptorRules enforces the source and entry constraints that tags
// cannot express.
func descriptorRules(sl validator.StructLevel) {
	d, ok := sl.Current().Interface().(ModelDescriptor)
	if !ok {
		return
	}
	if !d.HasSource() {
		sl.ReportError(d.SourceLocation, "SourceLocation", "SourceLocation", "required_without", "InlineSource")
		return
	}
	if d.Kind == KindForeignScript {
		return
	}
	if d.SourceLocation != "" && d.InlineSource != "" {
		sl.ReportError(d.InlineSource, "InlineSource", "InlineSource", "excluded_with", "SourceLocation")
	}
	if d.EntryName == "" {
		sl.ReportError(d.EntryName, "EntryName", "EntryName", "required", "")
	}
}

// ValidateDescriptor checks a normalized descriptor.
func ValidateDescriptor(d ModelDescriptor) error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid model descriptor: %w", err)
	}
	return nil
}

// ValidateSchema checks the structural rules of a schema document.
func ValidateSchema(s *Schema) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	return nil
}
