package tensor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// RawTensor is a dense, row-major array with a little-endian byte buffer.
//
// Model state is stored in this form so it can be written to a saved model
// without any per-element encoding.
type RawTensor struct {
	data   []byte
	shape  Shape
	stride []int
	dtype  DataType
}

// NewRaw creates a new zero-filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	n, ok := shape.NumElementsWithin(math.MaxInt / dtype.Size())
	if !ok {
		return nil, fmt.Errorf("invalid shape: %v of %s overflows", shape, dtype)
	}
	return &RawTensor{
		data:   make([]byte, n*dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.strides(),
		dtype:  dtype,
	}, nil
}

// FromFloat64 creates a Float64 tensor holding a copy of values.
func FromFloat64(shape Shape, values []float64) (*RawTensor, error) {
	raw, err := NewRaw(shape, Float64)
	if err != nil {
		return nil, err
	}
	if len(values) != raw.NumElements() {
		return nil, fmt.Errorf("shape %v needs %d values, got %d", shape, raw.NumElements(), len(values))
	}
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw.data[i*8:], math.Float64bits(v))
	}
	return raw, nil
}

// FromInt64 creates an Int64 tensor holding a copy of values.
func FromInt64(shape Shape, values []int64) (*RawTensor, error) {
	raw, err := NewRaw(shape, Int64)
	if err != nil {
		return nil, err
	}
	if len(values) != raw.NumElements() {
		return nil, fmt.Errorf("shape %v needs %d values, got %d", shape, raw.NumElements(), len(values))
	}
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw.data[i*8:], uint64(v)) //nolint:gosec // bit reinterpretation
	}
	return raw, nil
}

// FromMatrix creates a [rows, cols] Float64 tensor from a rectangular matrix.
func FromMatrix(m [][]float64) (*RawTensor, error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return nil, fmt.Errorf("matrix must be non-empty")
	}
	cols := len(m[0])
	flat := make([]float64, 0, len(m)*cols)
	for i, row := range m {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		flat = append(flat, row...)
	}
	return FromFloat64(Shape{len(m), cols}, flat)
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat64 decodes the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	out := make([]float64, r.NumElements())
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(r.data[i*8:]))
	}
	return out
}

// AsInt64 decodes the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	if r.dtype != Int64 {
		panic(fmt.Sprintf("tensor dtype is %s, not int64", r.dtype))
	}
	out := make([]int64, r.NumElements())
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(r.data[i*8:])) //nolint:gosec // bit reinterpretation
	}
	return out
}

// Matrix decodes a 2-D Float64 tensor into rows.
func (r *RawTensor) Matrix() ([][]float64, error) {
	if len(r.shape) != 2 {
		return nil, fmt.Errorf("expected 2-D tensor, got shape %v", r.shape)
	}
	if r.dtype != Float64 {
		return nil, fmt.Errorf("tensor dtype is %s, not float64", r.dtype)
	}
	flat := r.AsFloat64()
	rows, cols := r.shape[0], r.shape[1]
	m := make([][]float64, rows)
	for i := range m {
		m[i] = flat[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return m, nil
}

// Float64At returns the element at the given index of a Float64 tensor.
func (r *RawTensor) Float64At(index ...int) float64 {
	if len(index) != len(r.shape) {
		panic(fmt.Sprintf("index rank %d does not match tensor rank %d", len(index), len(r.shape)))
	}
	off := 0
	for i, idx := range index {
		if idx < 0 || idx >= r.shape[i] {
			panic(fmt.Sprintf("index %d out of range for dimension %d of size %d", idx, i, r.shape[i]))
		}
		off += idx * r.stride[i]
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(r.data[off*8:]))
}

// Clone returns a deep copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:   data,
		shape:  r.shape.Clone(),
		stride: r.shape.strides(),
		dtype:  r.dtype,
	}
}

// Equal reports whether two tensors have the same dtype, shape and bytes.
func (r *RawTensor) Equal(other *RawTensor) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.dtype == other.dtype && r.shape.Equal(other.shape) && bytes.Equal(r.data, other.data)
}
