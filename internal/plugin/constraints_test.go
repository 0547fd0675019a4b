package plugin

import (
	"errors"
	"testing"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(t *testing.T) *dataloader.Frame {
	t.Helper()
	f, err := dataloader.NewFrame([]string{"age", "score", "label"}, [][]float64{
		{18, 0.5, 0},
		{35, 1.5, 1},
		{62, 2.25, 1},
		{40, 0.75, 2},
	})
	require.NoError(t, err)
	return f
}

func TestParseRule(t *testing.T) {
	r, err := ParseRule("age >= 18")
	require.NoError(t, err)
	assert.Equal(t, Rule{Column: "age", Op: OpGe, Value: 18}, r)
	assert.Equal(t, "age >= 18", r.String())

	r, err = ParseRule("label in 0|1")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, r.Values)
	assert.Equal(t, "label in 0|1", r.String())

	for _, bad := range []string{"age", "age ~ 3", "age < x", "label in 1|y"} {
		_, err := ParseRule(bad)
		assert.True(t, errors.Is(err, ErrInvalidConstraint), bad)
	}
}

func TestConstraintsMatch(t *testing.T) {
	f := testFrame(t)
	c := Constraints{Rules: []Rule{
		{Column: "age", Op: OpGt, Value: 20},
		{Column: "label", Op: OpIn, Values: []float64{1}},
	}}

	got, err := c.Match(f)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, []float64{35, 1.5, 1}, got.Rows[0])
	assert.Equal(t, []float64{62, 2.25, 1}, got.Rows[1])

	ok, err := c.IsValid(f)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.IsValid(got)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConstraintsUnknownColumn(t *testing.T) {
	c := Constraints{Rules: []Rule{{Column: "height", Op: OpLt, Value: 2}}}
	_, err := c.Match(testFrame(t))
	assert.True(t, errors.Is(err, ErrInvalidConstraint))
}

func TestSchemaInferAndClip(t *testing.T) {
	s := InferSchema(testFrame(t))
	require.Len(t, s.Columns, 3)
	assert.Equal(t, ColumnSchema{Name: "age", Min: 18, Max: 62, Integral: true}, s.Columns[0])
	assert.False(t, s.Columns[1].Integral)
	assert.Equal(t, []string{"age", "score", "label"}, s.Names())

	gen := &dataloader.Frame{Columns: s.Names(), Rows: [][]float64{{10.4, 3, 1.6}}}
	s.Clip(gen)
	assert.Equal(t, []float64{18, 2.25, 2}, gen.Rows[0])

	ok, err := s.AsConstraints().IsValid(gen)
	require.NoError(t, err)
	assert.True(t, ok)
}
