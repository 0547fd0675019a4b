// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/born-ml/synth/plugins"
	"github.com/born-ml/synth/tensor"
)

// TestRawTensorAPI verifies the RawTensor alias exposes the expected API.
func TestRawTensorAPI(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	if !raw.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		t.Errorf("DType() = %v, want float32", raw.DType())
	}
	if raw.NumElements() != 6 {
		t.Errorf("NumElements() = %d, want 6", raw.NumElements())
	}
	if raw.ByteSize() != 24 {
		t.Errorf("ByteSize() = %d, want 24", raw.ByteSize())
	}

	if _, err := tensor.NewRaw(tensor.Shape{2, 0}, tensor.Float64); err == nil {
		t.Error("NewRaw accepted a zero dimension")
	}
}

// TestEnvelopeRoundTrip stores tensors in an envelope and reads them back.
func TestEnvelopeRoundTrip(t *testing.T) {
	counts, err := tensor.FromInt64(tensor.Shape{2, 3}, []int64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("FromInt64 failed: %v", err)
	}
	means, err := tensor.FromMatrix([][]float64{{0.5, 1.5}, {2.5, 3.5}})
	if err != nil {
		t.Fatalf("FromMatrix failed: %v", err)
	}

	env := &plugins.Envelope{
		Version:    "0.0",
		Plugin:     "custom",
		Category:   "generic",
		Attributes: map[string][]byte{},
		Tensors:    map[string]*tensor.RawTensor{},
		Metadata:   map[string]string{},
	}
	env.SetTensor("counts", counts)
	env.SetTensor("means", means)

	data, err := plugins.EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("EncodeEnvelope failed: %v", err)
	}
	decoded, err := plugins.DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}

	got, err := decoded.Tensor("counts")
	if err != nil {
		t.Fatalf("Tensor(counts) failed: %v", err)
	}
	if !got.Equal(counts) {
		t.Errorf("counts = %v, want %v", got.AsInt64(), counts.AsInt64())
	}
	got, err = decoded.Tensor("means")
	if err != nil {
		t.Fatalf("Tensor(means) failed: %v", err)
	}
	if v := got.Float64At(1, 0); v != 2.5 {
		t.Errorf("means[1][0] = %v, want 2.5", v)
	}
}
