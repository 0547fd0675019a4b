package plugin

import (
	"context"
	"math"
	"testing"

	"github.com/born-ml/synth/internal/serialization"
	"github.com/born-ml/synth/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateHelpersRoundTrip(t *testing.T) {
	env := serialization.NewEnvelope("p", string(Generic))
	require.NoError(t, SetVector(env, "v", []float64{1, 2, 3}))
	require.NoError(t, SetVector(env, "empty_v", nil))
	require.NoError(t, SetMatrix(env, "m", [][]float64{{1, 2}, {3, 4}}))
	require.NoError(t, SetMatrix(env, "empty_m", nil))

	data, err := serialization.Save(env)
	require.NoError(t, err)
	back, err := serialization.Load(data)
	require.NoError(t, err)

	v, err := Vector(back, "v")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, v)

	v, err = Vector(back, "empty_v")
	require.NoError(t, err)
	assert.Empty(t, v)

	m, err := Matrix(back, "m")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, m)

	m, err = Matrix(back, "empty_m")
	require.NoError(t, err)
	assert.Empty(t, m)

	_, err = Vector(back, "missing")
	assert.ErrorIs(t, err, serialization.ErrMissingAttribute)
}

func TestNestedRoundTrip(t *testing.T) {
	ctx := context.Background()
	child := newEcho(t, map[string]any{"offset": 1.5})
	require.NoError(t, child.Fit(ctx, genericLoader(t)))

	env := serialization.NewEnvelope("parent", string(Generic))
	require.NoError(t, SetNested(env, "child.", child))
	assert.True(t, env.Has("child.params"))
	assert.True(t, env.Has("child.rows"))

	data, err := serialization.Save(env)
	require.NoError(t, err)
	back, err := serialization.Load(data)
	require.NoError(t, err)

	restored, err := Nested(back, "child.")
	require.NoError(t, err)
	assert.Equal(t, "test_echo", restored.Name())
	assert.True(t, restored.Fitted())
	assert.Equal(t, 1.5, restored.Params().Float("offset"))

	_, err = Nested(back, "other.")
	assert.ErrorIs(t, err, serialization.ErrMissingAttribute)
}

func TestStateHelpersRejectWrongDType(t *testing.T) {
	env := serialization.NewEnvelope("p", string(Generic))
	v, err := tensor.FromInt64(tensor.Shape{3}, []int64{1, 2, 3})
	require.NoError(t, err)
	m, err := tensor.FromInt64(tensor.Shape{2, 2}, []int64{1, 2, 3, 4})
	require.NoError(t, err)
	env.SetTensor("v", v)
	env.SetTensor("m", m)

	require.NotPanics(t, func() {
		_, err = Vector(env, "v")
	})
	assert.ErrorIs(t, err, ErrStateMismatch)

	require.NotPanics(t, func() {
		_, err = Matrix(env, "m")
	})
	assert.ErrorIs(t, err, ErrStateMismatch)

	_, err = Vector(env, "m")
	assert.ErrorIs(t, err, ErrStateMismatch)
	_, err = Matrix(env, "v")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestMatrixRejectsRaggedAttribute(t *testing.T) {
	env := serialization.NewEnvelope("p", string(Generic))
	require.NoError(t, env.Set("m", [][]float64{{1, 2}, {3}}))

	_, err := Matrix(env, "m")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestCheckLenAndMatrix(t *testing.T) {
	assert.NoError(t, CheckLen("k", 3, 3))
	assert.ErrorIs(t, CheckLen("k", 2, 3), ErrStateMismatch)

	m := [][]float64{{1, 2}, {3, 4}}
	assert.NoError(t, CheckMatrix("m", m, 2, 2))
	assert.ErrorIs(t, CheckMatrix("m", m, 3, 2), ErrStateMismatch)
	assert.ErrorIs(t, CheckMatrix("m", m, 2, 3), ErrStateMismatch)
	assert.NoError(t, CheckMatrix("m", nil, 0, 5))
}

func TestCount(t *testing.T) {
	n, err := Count("bins", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = Count("bins", 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, bad := range []float64{-1, 2.5, math.NaN(), math.Inf(1), 1e18} {
		_, err := Count("bins", bad)
		assert.ErrorIs(t, err, ErrStateMismatch, "%v", bad)
	}
}
