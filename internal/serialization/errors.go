package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch  = errors.New("checksum mismatch: data may be corrupted")
	ErrInvalidMagic      = errors.New("invalid magic bytes")
	ErrUnsupportedFormat = errors.New("unsupported container format version")
	ErrHeaderTooLarge    = errors.New("header exceeds maximum size")
	ErrDataTooLarge      = errors.New("data section exceeds maximum size")
	ErrTruncated         = errors.New("truncated data")
	ErrVersionMismatch   = errors.New("incompatible library version")
	ErrMissingAttribute  = errors.New("attribute not found")
	ErrMissingTensor     = errors.New("tensor not found")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Tensor  string // Primary tensor name involved
	Tensor2 string // Secondary tensor name (for overlap errors)
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor2 != "" {
		return fmt.Sprintf("%s: tensors %q and %q: %s", e.Type, e.Tensor, e.Tensor2, e.Details)
	}
	if e.Tensor != "" {
		return fmt.Sprintf("%s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}
