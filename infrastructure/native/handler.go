package native

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/Bind-Forward/port/domain/ports"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// TypedFunc is a model taking one typed request and returning a typed
// response. It suits single-object models.
type TypedFunc[Req any, Resp any] func(context.Context, Req) (Resp, error)

// Typed wraps a TypedFunc into a uniform model callable. The single call
// argument is converted to Req through a JSON round trip.
//
// Usage:
//
//	area := native.Typed(func(ctx context.Context, r struct{ X, Y float64 }) (float64, error) {
//	    return r.X * r.Y, nil
//	})
func Typed[Req any, Resp any](fn TypedFunc[Req, Resp]) ports.Func {
	return func(ctx context.Context, args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expects 1 argument, got %d", len(args))
		}
		var req Req
		if err := convertJSON(args[0], &req); err != nil {
			return nil, fmt.Errorf("failed to decode request: %w", err)
		}
		return fn(ctx, req)
	}
}

// wrapFunc adapts a Go func to ports.Func by reflection.
//
// Expected signature: func(ctx context.Context, args...) (T, error) or
// func(ctx context.Context, args...) error.
func wrapFunc(fn any) (ports.Func, error) {
	if f, ok := fn.(ports.Func); ok {
		return f, nil
	}
	if f, ok := fn.(func(context.Context, ...any) (any, error)); ok {
		return f, nil
	}

	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("model must be a function, got %T", fn)
	}
	return wrapMethod(v)
}

func wrapMethod(method reflect.Value) (ports.Func, error) {
	methodType := method.Type()

	if methodType.IsVariadic() {
		return nil, fmt.Errorf("variadic models are not supported")
	}
	if methodType.NumIn() < 1 || !methodType.In(0).Implements(contextType) {
		return nil, fmt.Errorf("first parameter must be context.Context")
	}

	switch methodType.NumOut() {
	case 1:
		if !methodType.Out(0).Implements(errorType) {
			return nil, fmt.Errorf("single return value must be error")
		}
	case 2:
		if !methodType.Out(1).Implements(errorType) {
			return nil, fmt.Errorf("second return value must be error")
		}
	default:
		return nil, fmt.Errorf("model must return (T, error) or error")
	}

	params := methodType.NumIn() - 1
	return func(ctx context.Context, args ...any) (any, error) {
		if len(args) != params {
			return nil, fmt.Errorf("expects %d arguments, got %d", params, len(args))
		}
		in := make([]reflect.Value, 0, len(args)+1)
		in = append(in, reflect.ValueOf(ctx))
		for i, arg := range args {
			rv, err := convertArg(arg, methodType.In(i+1))
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			in = append(in, rv)
		}

		results := method.Call(in)

		errVal := results[len(results)-1]
		var err error
		if !errVal.IsNil() {
			err = errVal.Interface().(error)
		}
		if len(results) == 1 {
			return nil, err
		}
		return results[0].Interface(), err
	}, nil
}

// convertArg coerces a decoded protocol value to the parameter type.
// Assignable values and numbers are used directly; anything else goes
// through JSON.
func convertArg(arg any, target reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(target), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(target) {
		return v, nil
	}
	if isNumeric(v.Kind()) && isNumeric(target.Kind()) {
		return convertNumber(v, target)
	}
	ptr := reflect.New(target)
	if err := convertJSON(arg, ptr.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("cannot use %T as %s: %w", arg, target, err)
	}
	return ptr.Elem(), nil
}

// convertNumber converts between numeric kinds, refusing fractional
// values for integer targets and values out of the target's range.
func convertNumber(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	zero := reflect.Zero(target)
	fail := func(reason string) (reflect.Value, error) {
		return reflect.Value{}, fmt.Errorf("cannot use %v as %s: %s", v.Interface(), target, reason)
	}

	switch {
	case isFloat(target.Kind()):
		var f float64
		switch {
		case isFloat(v.Kind()):
			f = v.Float()
		case isSigned(v.Kind()):
			f = float64(v.Int())
		default:
			f = float64(v.Uint())
		}
		if !math.IsInf(f, 0) && !math.IsNaN(f) && zero.OverflowFloat(f) {
			return fail("out of range")
		}
	case isSigned(target.Kind()):
		switch {
		case isFloat(v.Kind()):
			f := v.Float()
			if math.Trunc(f) != f {
				return fail("not an integer")
			}
			if f < math.MinInt64 || f >= math.MaxInt64 || zero.OverflowInt(int64(f)) {
				return fail("out of range")
			}
		case isSigned(v.Kind()):
			if zero.OverflowInt(v.Int()) {
				return fail("out of range")
			}
		default:
			if v.Uint() > math.MaxInt64 || zero.OverflowInt(int64(v.Uint())) {
				return fail("out of range")
			}
		}
	default:
		switch {
		case isFloat(v.Kind()):
			f := v.Float()
			if math.Trunc(f) != f {
				return fail("not an integer")
			}
			if f < 0 || f >= math.MaxUint64 || zero.OverflowUint(uint64(f)) {
				return fail("out of range")
			}
		case isSigned(v.Kind()):
			if v.Int() < 0 || zero.OverflowUint(uint64(v.Int())) {
				return fail("out of range")
			}
		default:
			if zero.OverflowUint(v.Uint()) {
				return fail("out of range")
			}
		}
	}
	return v.Convert(target), nil
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func convertJSON(in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
