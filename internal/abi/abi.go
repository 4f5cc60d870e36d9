// Package abi implements the host side of the calling conventions used to
// invoke wasm model exports: numeric values passed directly on the stack,
// and JSON documents passed through guest linear memory as a packed
// pointer and length.
package abi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"
)

// PtrHighBits is the shift of the pointer within a packed value.
const PtrHighBits = 32

// AllocateExport is the guest export the host calls to reserve memory.
const AllocateExport = "allocate"

// ErrNullPointer is returned for a packed value with a null pointer and a
// non-zero length.
var ErrNullPointer = errors.New("abi: null pointer with non-zero length")

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
func PackPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
func UnpackPtrLen(packed uint64) (ptr, length uint32, err error) {
	ptr = uint32(packed >> PtrHighBits) //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed)             //nolint:gosec // G115: Packed format stores 32-bit values
	if ptr == 0 && length > 0 {
		return 0, 0, fmt.Errorf("%w (%d)", ErrNullPointer, length)
	}
	return ptr, length, nil
}

// IsNumeric reports whether every type is a plain wasm number, so values
// can be passed on the stack.
func IsNumeric(types []api.ValueType) bool {
	for _, t := range types {
		switch t {
		case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
		default:
			return false
		}
	}
	return true
}

// IsPacked reports whether a signature follows the JSON convention:
// (ptr i32, len i32) -> packed i64.
func IsPacked(params, results []api.ValueType) bool {
	return len(params) == 2 && params[0] == api.ValueTypeI32 && params[1] == api.ValueTypeI32 &&
		len(results) == 1 && results[0] == api.ValueTypeI64
}

// EncodeArgs converts protocol values to stack values of the given types.
func EncodeArgs(types []api.ValueType, args []any) ([]uint64, error) {
	if len(args) != len(types) {
		return nil, fmt.Errorf("expects %d arguments, got %d", len(types), len(args))
	}
	stack := make([]uint64, len(args))
	for i, arg := range args {
		f, isInt, err := number(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		switch types[i] {
		case api.ValueTypeI32:
			if !isInt || f < math.MinInt32 || f > math.MaxInt32 {
				return nil, fmt.Errorf("argument %d: %v is not an i32", i, arg)
			}
			stack[i] = api.EncodeI32(int32(f))
		case api.ValueTypeI64:
			if !isInt {
				return nil, fmt.Errorf("argument %d: %v is not an i64", i, arg)
			}
			if n, ok := arg.(int64); ok {
				stack[i] = api.EncodeI64(n)
			} else {
				stack[i] = api.EncodeI64(int64(f))
			}
		case api.ValueTypeF32:
			stack[i] = api.EncodeF32(float32(f))
		case api.ValueTypeF64:
			stack[i] = api.EncodeF64(f)
		default:
			return nil, fmt.Errorf("argument %d: unsupported wasm type %s", i, api.ValueTypeName(types[i]))
		}
	}
	return stack, nil
}

// DecodeResults converts stack values back to protocol values. No result
// is nil, one is returned as is, several become a list.
func DecodeResults(types []api.ValueType, stack []uint64) any {
	values := make([]any, len(types))
	for i, t := range types {
		switch t {
		case api.ValueTypeI32:
			values[i] = int64(api.DecodeI32(stack[i]))
		case api.ValueTypeI64:
			values[i] = int64(stack[i]) //nolint:gosec // G115: i64 results are signed
		case api.ValueTypeF32:
			values[i] = float64(api.DecodeF32(stack[i]))
		case api.ValueTypeF64:
			values[i] = api.DecodeF64(stack[i])
		default:
			values[i] = stack[i]
		}
	}
	switch len(values) {
	case 0:
		return nil
	case 1:
		return values[0]
	default:
		return values
	}
}

func number(v any) (f float64, isInt bool, err error) {
	switch n := v.(type) {
	case int64:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int32:
		return float64(n), true, nil
	case float64:
		return n, n == math.Trunc(n), nil
	case float32:
		return float64(n), float64(n) == math.Trunc(float64(n)), nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil && f == math.Trunc(f), err
	case bool:
		if n {
			return 1, true, nil
		}
		return 0, true, nil
	default:
		return 0, false, fmt.Errorf("%T is not a number", v)
	}
}

// WriteBytes copies data into guest memory reserved through the guest's
// allocate export and returns the packed pointer and length.
func WriteBytes(ctx context.Context, mod api.Module, data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	allocate := mod.ExportedFunction(AllocateExport)
	if allocate == nil {
		return 0, fmt.Errorf("guest does not export %q", AllocateExport)
	}
	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to allocate in guest: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("allocate returned no results")
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
	if !mod.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("failed to write %d bytes to guest memory at %#x", len(data), ptr)
	}
	return PackPtrLen(ptr, uint32(len(data))), nil //nolint:gosec // G115: bounded by allocate
}

// ReadBytes copies the bytes named by a packed pointer out of guest memory.
// The copy stays valid after the guest memory grows or is reused.
func ReadBytes(mod api.Module, packed uint64, limit uint32) ([]byte, error) {
	ptr, length, err := UnpackPtrLen(packed)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	if limit > 0 && length > limit {
		return nil, fmt.Errorf("response size %d exceeds maximum %d bytes", length, limit)
	}
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("failed to read %d bytes from guest memory at %#x", length, ptr)
	}
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}
