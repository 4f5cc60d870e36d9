package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// CallPayload carries the input values of one invocation. Exactly one of
// Args (positional) and Params (single-object) is meaningful; IsPositional
// tells which. On the wire a payload is a bare JSON array or object.
type CallPayload struct {
	Params map[string]any
	Args   []any

	positional bool
}

// PositionalPayload builds a payload spread as positional arguments.
func PositionalPayload(args ...any) CallPayload {
	if args == nil {
		args = []any{}
	}
	return CallPayload{Args: args, positional: true}
}

// ObjectPayload builds a payload passed as one mapping argument.
func ObjectPayload(params map[string]any) CallPayload {
	if params == nil {
		params = map[string]any{}
	}
	return CallPayload{Params: params}
}

// IsPositional reports whether the payload is an ordered value list.
func (p CallPayload) IsPositional() bool {
	return p.positional
}

// Value returns the payload as a plain value: a []any or a map[string]any.
func (p CallPayload) Value() any {
	if p.positional {
		return p.Args
	}
	return p.Params
}

// MarshalJSON encodes the payload as a bare array or object.
func (p CallPayload) MarshalJSON() ([]byte, error) {
	if p.positional {
		if p.Args == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(p.Args)
	}
	if p.Params == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Params)
}

// UnmarshalJSON accepts an array (positional) or an object (single-object).
// Numbers are kept as int64 when integral and float64 otherwise.
func (p *CallPayload) UnmarshalJSON(data []byte) error {
	v, err := DecodeValue(data)
	if err != nil {
		return err
	}
	switch t := v.(type) {
	case []any:
		*p = PositionalPayload(t...)
	case map[string]any:
		*p = ObjectPayload(t)
	case nil:
		*p = ObjectPayload(nil)
	default:
		return fmt.Errorf("call payload must be an array or object, got %T", v)
	}
	return nil
}

// DecodeValue decodes arbitrary JSON, normalizing numbers so integral values
// stay integers across the wire. data must hold exactly one value.
func DecodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid JSON: trailing data after value")
	}
	return NormalizeNumbers(v), nil
}

// NormalizeNumbers walks a decoded JSON value replacing json.Number with
// int64 or float64.
func NormalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = NormalizeNumbers(t[i])
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = NormalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}
