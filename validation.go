package port

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate reports fields by their json names, which are the input names.
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// ValidateParams binds the inputs in p to target, a pointer to a struct
// with json tags, and checks its validate tags. The error names the first
// input that failed.
func ValidateParams(p Params, target any) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("params: marshal: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("params: unmarshal into %T: %w", target, err)
	}

	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("params validation failed: input %q failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("params validation failed: %w", err)
	}
	return nil
}
