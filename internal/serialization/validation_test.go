package serialization

import (
	"errors"
	"math"
	"strings"
	"testing"
)

// TestValidateTensorOffsets_NoOverlap verifies that valid tensors pass validation.
func TestValidateTensorOffsets_NoOverlap(t *testing.T) {
	tensors := []TensorMeta{
		{Name: "tensor1", Offset: 16, Size: 100},
		{Name: "tensor2", Offset: 116, Size: 200},
		{Name: "tensor3", Offset: 316, Size: 150},
	}

	if err := ValidateTensorOffsets(tensors, 16, 466); err != nil {
		t.Errorf("Expected no error for valid tensors, got: %v", err)
	}
}

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		start    int64
		dataSize int64
		wantType string
	}{
		{
			name: "complete overlap",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 0, Size: 100},
				{Name: "tensor2", Offset: 50, Size: 100},
			},
			dataSize: 200,
			wantType: "offset_overlap",
		},
		{
			name: "partial overlap at boundary",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 0, Size: 100},
				{Name: "tensor2", Offset: 99, Size: 100},
			},
			dataSize: 200,
			wantType: "offset_overlap",
		},
		{
			name: "exact boundary (no overlap)",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 0, Size: 100},
				{Name: "tensor2", Offset: 100, Size: 100},
			},
			dataSize: 200,
		},
		{
			name: "tensor extends beyond data",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 100, Size: 200},
			},
			dataSize: 250,
			wantType: "out_of_bounds",
		},
		{
			name: "offset plus size wraps",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: math.MaxInt64 - 3, Size: 8},
			},
			dataSize: 64,
			wantType: "out_of_bounds",
		},
		{
			name: "negative offset",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: -100, Size: 100},
			},
			dataSize: 500,
			wantType: "negative_offset",
		},
		{
			name: "negative size",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 0, Size: -1},
			},
			dataSize: 500,
			wantType: "negative_offset",
		},
		{
			name: "inside attribute block",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 8, Size: 8},
			},
			start:    32,
			dataSize: 64,
			wantType: "attribute_overlap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.start, tt.dataSize)
			if tt.wantType == "" {
				if err != nil {
					t.Errorf("ValidateTensorOffsets() unexpected error = %v", err)
				}
				return
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected ValidationError, got %T (%v)", err, err)
			}
			if validationErr.Type != tt.wantType {
				t.Errorf("Expected %s error, got %s", tt.wantType, validationErr.Type)
			}
		})
	}
}

func TestValidateTensorName(t *testing.T) {
	tests := []struct {
		name    string
		tensor  string
		wantErr bool
	}{
		{"simple", "weight", false},
		{"dotted", "generator.means", false},
		{"empty", "", true},
		{"traversal", "../etc/passwd", true},
		{"slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"null byte", "a\x00b", true},
		{"too long", strings.Repeat("x", MaxTensorNameLen+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorName(tt.tensor)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTensorName(%q) error = %v, wantErr %v", tt.tensor, err, tt.wantErr)
			}
		})
	}
}

func TestValidateHeader_Levels(t *testing.T) {
	h := &Header{
		AttributesSize: 0,
		Tensors: []TensorMeta{
			{Name: "a", Offset: 0, Size: 100},
			{Name: "b", Offset: 50, Size: 100},
		},
	}

	if err := ValidateHeader(h, 200, ValidationStrict); err == nil {
		t.Error("strict validation should reject overlapping tensors")
	}
	if err := ValidateHeader(h, 200, ValidationNormal); err != nil {
		t.Errorf("normal validation should only check names, got %v", err)
	}

	h.Tensors[1].Name = "a"
	if err := ValidateHeader(h, 200, ValidationNormal); err == nil {
		t.Error("duplicate tensor names should be rejected")
	}
	if err := ValidateHeader(h, 200, ValidationNone); err != nil {
		t.Errorf("ValidationNone should skip checks, got %v", err)
	}

	h.Tensors = nil
	h.AttributesSize = 300
	if err := ValidateHeader(h, 200, ValidationNormal); err == nil {
		t.Error("attributes larger than the data section should be rejected")
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Type: "offset_overlap", Tensor: "a", Tensor2: "b", Details: "x"}
	if !strings.Contains(err.Error(), `"a" and "b"`) {
		t.Errorf("unexpected message %q", err.Error())
	}
	err = &ValidationError{Type: "out_of_bounds", Details: "y"}
	if err.Error() != "out_of_bounds: y" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
