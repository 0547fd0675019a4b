// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/synth/internal/tensor"
)

// RawTensor is a dense, row-major array with a little-endian byte buffer.
type RawTensor = tensor.RawTensor

// Shape is a tensor's dimensions.
type Shape = tensor.Shape

// DataType is a tensor's element type.
type DataType = tensor.DataType

// Supported element types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Uint8   = tensor.Uint8
	Bool    = tensor.Bool
)

// NewRaw creates a zero-filled tensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// FromFloat64 creates a Float64 tensor holding a copy of values.
func FromFloat64(shape Shape, values []float64) (*RawTensor, error) {
	return tensor.FromFloat64(shape, values)
}

// FromInt64 creates an Int64 tensor holding a copy of values.
func FromInt64(shape Shape, values []int64) (*RawTensor, error) {
	return tensor.FromInt64(shape, values)
}

// FromMatrix creates a [rows, cols] Float64 tensor from a rectangular matrix.
func FromMatrix(m [][]float64) (*RawTensor, error) {
	return tensor.FromMatrix(m)
}
