package port

import (
	"fmt"

	"github.com/Bind-Forward/port/domain/errors"
)

// Params is the name→value mapping a single-object model is called with.
type Params map[string]any

// ParamsFrom converts a call argument to Params.
func ParamsFrom(v any) (Params, error) {
	switch t := v.(type) {
	case Params:
		return t, nil
	case map[string]any:
		return Params(t), nil
	case nil:
		return Params{}, nil
	default:
		return nil, fmt.Errorf("expected a mapping of inputs, got %T", v)
	}
}

// String returns the string at key, reporting whether it was present and a
// string.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns the integer at key. Decoded JSON numbers may arrive as int64
// or float64; both are accepted.
func (p Params) Int(key string) (int64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// Float returns the number at key as a float64.
func (p Params) Float(key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Bool returns the bool at key.
func (p Params) Bool(key string) (bool, bool) {
	v, ok := p[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Strings returns the list of strings at key.
func (p Params) Strings(key string) ([]string, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		result := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			result = append(result, s)
		}
		return result, true
	default:
		return nil, false
	}
}

// RequireString returns the string at key or a *errors.ConfigError naming it.
func (p Params) RequireString(key string) (string, error) {
	s, ok := p.String(key)
	if !ok {
		return "", missing(key, "string")
	}
	return s, nil
}

// RequireInt returns the integer at key or a *errors.ConfigError naming it.
func (p Params) RequireInt(key string) (int64, error) {
	i, ok := p.Int(key)
	if !ok {
		return 0, missing(key, "number")
	}
	return i, nil
}

// RequireFloat returns the number at key or a *errors.ConfigError naming it.
func (p Params) RequireFloat(key string) (float64, error) {
	f, ok := p.Float(key)
	if !ok {
		return 0, missing(key, "number")
	}
	return f, nil
}

// RequireBool returns the bool at key or a *errors.ConfigError naming it.
func (p Params) RequireBool(key string) (bool, error) {
	b, ok := p.Bool(key)
	if !ok {
		return false, missing(key, "boolean")
	}
	return b, nil
}

// StringOr returns the string at key, or def.
func (p Params) StringOr(key, def string) string {
	if s, ok := p.String(key); ok {
		return s
	}
	return def
}

// IntOr returns the integer at key, or def.
func (p Params) IntOr(key string, def int64) int64 {
	if i, ok := p.Int(key); ok {
		return i
	}
	return def
}

// FloatOr returns the number at key, or def.
func (p Params) FloatOr(key string, def float64) float64 {
	if f, ok := p.Float(key); ok {
		return f
	}
	return def
}

// BoolOr returns the bool at key, or def.
func (p Params) BoolOr(key string, def bool) bool {
	if b, ok := p.Bool(key); ok {
		return b
	}
	return def
}

func missing(key, kind string) error {
	return &errors.ConfigError{
		Field: key,
		Err:   fmt.Errorf("required %s input '%s' is missing or has the wrong type", kind, key),
	}
}
