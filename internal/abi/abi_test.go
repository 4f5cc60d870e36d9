package abi

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
)

func TestPackPtrLen(t *testing.T) {
	tests := []struct {
		name   string
		ptr    uint32
		length uint32
		want   uint64
	}{
		{
			name:   "typical values",
			ptr:    0x12345678,
			length: 0xABCDEF00,
			want:   (uint64(0x12345678) << PtrHighBits) | uint64(0xABCDEF00),
		},
		{
			name:   "zero pointer zero length",
			ptr:    0,
			length: 0,
			want:   0,
		},
		{
			name:   "max pointer",
			ptr:    0xFFFFFFFF,
			length: 1,
			want:   (uint64(0xFFFFFFFF) << PtrHighBits) | 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := PackPtrLen(tt.ptr, tt.length)
			assert.Equal(t, tt.want, packed, "packed value mismatch")

			gotPtr, gotLen, err := UnpackPtrLen(packed)
			require.NoError(t, err)
			assert.Equal(t, tt.ptr, gotPtr, "unpacked pointer mismatch")
			assert.Equal(t, tt.length, gotLen, "unpacked length mismatch")
		})
	}
}

func TestUnpackPtrLen_NullPointerWithLength(t *testing.T) {
	_, _, err := UnpackPtrLen(uint64(1))
	assert.ErrorIs(t, err, ErrNullPointer)
}

func TestSignatureClassification(t *testing.T) {
	i32, i64, f64 := api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF64

	assert.True(t, IsNumeric([]api.ValueType{i32, f64}))
	assert.True(t, IsNumeric(nil))
	assert.False(t, IsNumeric([]api.ValueType{api.ValueTypeExternref}))

	assert.True(t, IsPacked([]api.ValueType{i32, i32}, []api.ValueType{i64}))
	assert.False(t, IsPacked([]api.ValueType{i32, i32}, []api.ValueType{i32}))
}

func TestEncodeArgs(t *testing.T) {
	tests := []struct {
		name    string
		types   []api.ValueType
		args    []any
		want    []uint64
		wantErr string
	}{
		{
			name:  "i32 from int64",
			types: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
			args:  []any{int64(3), int64(-4)},
			want:  []uint64{api.EncodeI32(3), api.EncodeI32(-4)},
		},
		{
			name:  "integral float to i64",
			types: []api.ValueType{api.ValueTypeI64},
			args:  []any{2.0},
			want:  []uint64{api.EncodeI64(2)},
		},
		{
			name:  "f64",
			types: []api.ValueType{api.ValueTypeF64},
			args:  []any{json.Number("1.5")},
			want:  []uint64{api.EncodeF64(1.5)},
		},
		{
			name:    "fraction to i32",
			types:   []api.ValueType{api.ValueTypeI32},
			args:    []any{1.5},
			wantErr: "not an i32",
		},
		{
			name:    "overflow i32",
			types:   []api.ValueType{api.ValueTypeI32},
			args:    []any{int64(math.MaxInt32) + 1},
			wantErr: "not an i32",
		},
		{
			name:    "string",
			types:   []api.ValueType{api.ValueTypeI32},
			args:    []any{"3"},
			wantErr: "not a number",
		},
		{
			name:    "arity",
			types:   []api.ValueType{api.ValueTypeI32},
			args:    nil,
			wantErr: "expects 1 arguments",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeArgs(tt.types, tt.args)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeResults(t *testing.T) {
	assert.Nil(t, DecodeResults(nil, nil))
	assert.Equal(t, int64(-7), DecodeResults([]api.ValueType{api.ValueTypeI32}, []uint64{api.EncodeI32(-7)}))
	assert.Equal(t, []any{int64(1), 0.5}, DecodeResults(
		[]api.ValueType{api.ValueTypeI64, api.ValueTypeF64},
		[]uint64{api.EncodeI64(1), api.EncodeF64(0.5)},
	))
}
