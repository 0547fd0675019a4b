package dataloader

import (
	"fmt"
	"math"
)

// Columns added by TimeSeriesDataLoader.Frame.
const (
	SequenceIDColumn = "seq_id"
	SeqTimeColumn    = "seq_time"
)

// TimeSeriesDataLoader holds one static row, one temporal sequence and one
// outcome row per sample. Sequences may differ in length.
type TimeSeriesDataLoader struct {
	Static           *Frame        // n x s, may have zero columns
	Temporal         [][][]float64 // n sequences of len_i x f observations
	TemporalColumns  []string
	ObservationTimes [][]float64 // n sequences of len_i timestamps
	Outcome          *Frame      // n x o, may have zero columns
}

// NewTimeSeries validates and wraps the parts. nil static or outcome frames
// become empty frames with n rows.
func NewTimeSeries(static *Frame, temporal [][][]float64, temporalColumns []string, observationTimes [][]float64, outcome *Frame) (*TimeSeriesDataLoader, error) {
	n := len(temporal)
	if static == nil {
		static = &Frame{Rows: make([][]float64, n)}
	}
	if outcome == nil {
		outcome = &Frame{Rows: make([][]float64, n)}
	}
	l := &TimeSeriesDataLoader{
		Static:           static,
		Temporal:         temporal,
		TemporalColumns:  temporalColumns,
		ObservationTimes: observationTimes,
		Outcome:          outcome,
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Type implements DataLoader.
func (l *TimeSeriesDataLoader) Type() LoaderType { return TimeSeries }

// Len implements DataLoader and returns the number of sequences.
func (l *TimeSeriesDataLoader) Len() int { return len(l.Temporal) }

// Columns implements DataLoader.
func (l *TimeSeriesDataLoader) Columns() []string {
	cols := []string{SequenceIDColumn, SeqTimeColumn}
	cols = append(cols, l.Static.Columns...)
	cols = append(cols, l.TemporalColumns...)
	cols = append(cols, l.Outcome.Columns...)
	return cols
}

// Frame implements DataLoader. It flattens the data to one row per
// observation: sequence id, time, static values, temporal values, outcome.
func (l *TimeSeriesDataLoader) Frame() *Frame {
	f := &Frame{Columns: l.Columns()}
	for i, seq := range l.Temporal {
		for t, obs := range seq {
			row := make([]float64, 0, len(f.Columns))
			row = append(row, float64(i), l.ObservationTimes[i][t])
			row = append(row, l.Static.Rows[i]...)
			row = append(row, obs...)
			row = append(row, l.Outcome.Rows[i]...)
			f.Rows = append(f.Rows, row)
		}
	}
	return f
}

// SequenceLengths returns the length of each sequence.
func (l *TimeSeriesDataLoader) SequenceLengths() []int {
	out := make([]int, len(l.Temporal))
	for i, seq := range l.Temporal {
		out[i] = len(seq)
	}
	return out
}

// Validate implements DataLoader.
//
//nolint:gocyclo,cyclop // Sequential shape checks
func (l *TimeSeriesDataLoader) Validate() error {
	n := len(l.Temporal)
	if n == 0 {
		return fmt.Errorf("%w: no sequences", ErrInvalidData)
	}
	if err := l.Static.Validate(); err != nil {
		return fmt.Errorf("static: %w", err)
	}
	if err := l.Outcome.Validate(); err != nil {
		return fmt.Errorf("outcome: %w", err)
	}
	if l.Static.Len() != n {
		return fmt.Errorf("%w: %d static rows for %d sequences", ErrInvalidData, l.Static.Len(), n)
	}
	if l.Outcome.Len() != n {
		return fmt.Errorf("%w: %d outcome rows for %d sequences", ErrInvalidData, l.Outcome.Len(), n)
	}
	if len(l.ObservationTimes) != n {
		return fmt.Errorf("%w: %d observation time sequences for %d sequences", ErrInvalidData, len(l.ObservationTimes), n)
	}
	if len(l.TemporalColumns) == 0 {
		return fmt.Errorf("%w: no temporal columns", ErrInvalidData)
	}
	for i, seq := range l.Temporal {
		if len(seq) == 0 {
			return fmt.Errorf("%w: sequence %d is empty", ErrInvalidData, i)
		}
		if len(l.ObservationTimes[i]) != len(seq) {
			return fmt.Errorf("%w: sequence %d has %d observations and %d times", ErrInvalidData, i, len(seq), len(l.ObservationTimes[i]))
		}
		for t, obs := range seq {
			if len(obs) != len(l.TemporalColumns) {
				return fmt.Errorf("%w: sequence %d step %d has %d values, expected %d", ErrInvalidData, i, t, len(obs), len(l.TemporalColumns))
			}
			for _, v := range obs {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("%w: non-finite value in sequence %d step %d", ErrInvalidData, i, t)
				}
			}
			if t > 0 && l.ObservationTimes[i][t] < l.ObservationTimes[i][t-1] {
				return fmt.Errorf("%w: observation times of sequence %d are not sorted", ErrInvalidData, i)
			}
		}
	}
	return nil
}
