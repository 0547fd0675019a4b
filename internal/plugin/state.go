package plugin

import (
	"fmt"
	"math"

	"github.com/born-ml/synth/internal/serialization"
	"github.com/born-ml/synth/internal/tensor"
)

// SetVector stores x as a 1-D tensor. Empty vectors are stored as an empty
// attribute under the same key.
func SetVector(env *serialization.Envelope, key string, x []float64) error {
	if len(x) == 0 {
		return env.Set(key, []float64{})
	}
	raw, err := tensor.FromFloat64(tensor.Shape{len(x)}, x)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	env.SetTensor(key, raw)
	return nil
}

// Vector reads a vector stored by SetVector.
func Vector(env *serialization.Envelope, key string) ([]float64, error) {
	if raw, ok := env.Tensors[key]; ok && raw != nil {
		if len(raw.Shape()) != 1 {
			return nil, fmt.Errorf("%w: %s: expected 1-D tensor, got shape %v", ErrStateMismatch, key, raw.Shape())
		}
		if raw.DType() != tensor.Float64 {
			return nil, fmt.Errorf("%w: %s: dtype %s, want float64", ErrStateMismatch, key, raw.DType())
		}
		return raw.AsFloat64(), nil
	}
	var x []float64
	if err := env.Get(key, &x); err != nil {
		return nil, err
	}
	return x, nil
}

// SetMatrix stores m as a 2-D tensor. Matrices with no rows or no columns
// are stored as an empty attribute under the same key.
func SetMatrix(env *serialization.Envelope, key string, m [][]float64) error {
	if len(m) == 0 || len(m[0]) == 0 {
		return env.Set(key, [][]float64{})
	}
	raw, err := tensor.FromMatrix(m)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	env.SetTensor(key, raw)
	return nil
}

// Matrix reads a matrix stored by SetMatrix.
func Matrix(env *serialization.Envelope, key string) ([][]float64, error) {
	if raw, ok := env.Tensors[key]; ok && raw != nil {
		if raw.DType() != tensor.Float64 {
			return nil, fmt.Errorf("%w: %s: dtype %s, want float64", ErrStateMismatch, key, raw.DType())
		}
		m, err := raw.Matrix()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrStateMismatch, key, err)
		}
		return m, nil
	}
	var m [][]float64
	if err := env.Get(key, &m); err != nil {
		return nil, err
	}
	for i, row := range m {
		if len(row) != len(m[0]) {
			return nil, fmt.Errorf("%w: %s: row %d has %d columns, expected %d", ErrStateMismatch, key, i, len(row), len(m[0]))
		}
	}
	return m, nil
}

// CheckLen reports restored state whose length disagrees with the rest of
// the state.
func CheckLen(key string, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s has %d entries, expected %d", ErrStateMismatch, key, got, want)
	}
	return nil
}

// CheckMatrix reports a restored matrix that is not rows by cols.
func CheckMatrix(key string, m [][]float64, rows, cols int) error {
	if err := CheckLen(key, len(m), rows); err != nil {
		return err
	}
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("%w: %s row %d has %d columns, expected %d", ErrStateMismatch, key, i, len(row), cols)
		}
	}
	return nil
}

// Count converts a stored count back to an int. Negative, fractional and
// non-finite values are rejected.
func Count(key string, v float64) (int, error) {
	if v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s: invalid count %v", ErrStateMismatch, key, v)
	}
	return int(v), nil
}

// SetNested stores the state of child under prefix, along with its name.
func SetNested(env *serialization.Envelope, prefix string, child Plugin) error {
	childEnv, err := child.State()
	if err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	env.Merge(prefix, childEnv)
	return env.Set(prefix+"plugin", child.Name())
}

// Nested rebuilds a child plugin stored by SetNested.
func Nested(env *serialization.Envelope, prefix string) (Plugin, error) {
	var name string
	if err := env.Get(prefix+"plugin", &name); err != nil {
		return nil, err
	}
	def, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, name)
	}
	child, err := FromEnvelope(env.Extract(prefix, name, string(def.Category)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	return child, nil
}
