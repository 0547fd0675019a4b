package dataloader

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameValidate(t *testing.T) {
	tests := []struct {
		name    string
		frame   *Frame
		wantErr bool
	}{
		{"ok", &Frame{Columns: []string{"a", "b"}, Rows: [][]float64{{1, 2}, {3, 4}}}, false},
		{"empty", &Frame{Columns: []string{"a"}}, false},
		{"ragged", &Frame{Columns: []string{"a", "b"}, Rows: [][]float64{{1}}}, true},
		{"duplicate column", &Frame{Columns: []string{"a", "a"}}, true},
		{"empty column", &Frame{Columns: []string{""}}, true},
		{"nan", &Frame{Columns: []string{"a"}, Rows: [][]float64{{math.NaN()}}}, true},
		{"inf", &Frame{Columns: []string{"a"}, Rows: [][]float64{{math.Inf(1)}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidData), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFrameOps(t *testing.T) {
	f, err := NewFrame([]string{"a", "b", "c"}, [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
	require.NoError(t, err)

	col, err := f.Column("b")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5, 8}, col)

	_, err = f.Column("z")
	assert.Error(t, err)

	sel := f.Select([]int{2, 0})
	assert.Equal(t, [][]float64{{7, 8, 9}, {1, 2, 3}}, sel.Rows)
	sel.Rows[0][0] = -1
	assert.Equal(t, 7.0, f.Rows[2][0])

	dropped, err := f.Drop("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, dropped.Columns)
	assert.Equal(t, []float64{4, 6}, dropped.Rows[1])

	_, err = f.Drop("missing")
	assert.Error(t, err)

	clone := f.Clone()
	clone.Rows[0][0] = 100
	assert.Equal(t, 1.0, f.Rows[0][0])
}

func TestGenericLoader(t *testing.T) {
	f := &Frame{Columns: []string{"x", "y"}, Rows: [][]float64{{1, 0}, {2, 1}}}
	l, err := NewGeneric(f, "y")
	require.NoError(t, err)
	assert.Equal(t, Generic, l.Type())
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, "y", l.Target())

	_, err = NewGeneric(f, "z")
	assert.Error(t, err)
}

func TestSurvivalLoader(t *testing.T) {
	f := &Frame{
		Columns: []string{"age", "arrest", "week"},
		Rows:    [][]float64{{20, 1, 5}, {30, 0, 52}, {25, 1, 12}},
	}
	l, err := NewSurvivalAnalysis(f, "arrest", "week")
	require.NoError(t, err)
	assert.Equal(t, SurvivalAnalysis, l.Type())
	assert.Equal(t, []float64{1, 0, 1}, l.Events())
	assert.Equal(t, []float64{5, 52, 12}, l.Times())
	assert.Equal(t, []string{"age"}, l.Covariates().Columns)

	_, err = NewSurvivalAnalysis(f, "arrest", "arrest")
	assert.Error(t, err)
	_, err = NewSurvivalAnalysis(f, "age", "week")
	assert.Error(t, err, "non-binary event column")

	bad := f.Clone()
	bad.Rows[0][2] = -1
	_, err = NewSurvivalAnalysis(bad, "arrest", "week")
	assert.Error(t, err)
}

func TestTimeSeriesLoader(t *testing.T) {
	static := &Frame{Columns: []string{"sector"}, Rows: [][]float64{{1}, {2}}}
	outcome := &Frame{Columns: []string{"label"}, Rows: [][]float64{{0}, {1}}}
	temporal := [][][]float64{
		{{10, 1}, {11, 2}, {12, 3}},
		{{20, 4}, {21, 5}},
	}
	times := [][]float64{{0, 1, 2}, {0, 1}}

	l, err := NewTimeSeries(static, temporal, []string{"open", "volume"}, times, outcome)
	require.NoError(t, err)
	assert.Equal(t, TimeSeries, l.Type())
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []int{3, 2}, l.SequenceLengths())
	assert.Equal(t, []string{SequenceIDColumn, SeqTimeColumn, "sector", "open", "volume", "label"}, l.Columns())

	flat := l.Frame()
	require.Equal(t, 5, flat.Len())
	assert.Equal(t, []float64{1, 1, 2, 21, 5, 1}, flat.Rows[4])

	_, err = NewTimeSeries(nil, temporal, []string{"open", "volume"}, [][]float64{{0, 1, 2}}, nil)
	assert.Error(t, err, "observation time count mismatch")

	_, err = NewTimeSeries(nil, temporal, []string{"open", "volume"}, [][]float64{{0, 2, 1}, {0, 1}}, nil)
	assert.Error(t, err, "unsorted times")

	_, err = NewTimeSeries(nil, [][][]float64{{{1}}}, []string{"open", "volume"}, [][]float64{{0}}, nil)
	assert.Error(t, err, "width mismatch")

	noStatic, err := NewTimeSeries(nil, temporal, []string{"open", "volume"}, times, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, noStatic.Static.Width())
}

func TestCSVRoundTrip(t *testing.T) {
	input := "a,b\n1,2.5\n-3,4e2\n"
	f, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.Columns)
	assert.Equal(t, [][]float64{{1, 2.5}, {-3, 400}}, f.Rows)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))
	assert.Equal(t, "a,b\n1,2.5\n-3,400\n", buf.String())
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a\nx\n"))
	assert.True(t, errors.Is(err, ErrInvalidData))

	_, err = ReadCSV(strings.NewReader("a,b\n1\n"))
	assert.Error(t, err)
}
