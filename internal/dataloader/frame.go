// Package dataloader defines the tabular, time-series and survival-analysis
// containers that plugins fit on and generate.
package dataloader

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidData is returned when a container fails validation.
var ErrInvalidData = errors.New("dataloader: invalid data")

// Frame is a numeric, row-major table with named columns.
type Frame struct {
	Columns []string
	Rows    [][]float64
}

// NewFrame validates and wraps columns and rows. Rows are not copied.
func NewFrame(columns []string, rows [][]float64) (*Frame, error) {
	f := &Frame{Columns: columns, Rows: rows}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks that column names are unique and every row is finite and
// as wide as the header.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidData)
	}
	seen := make(map[string]struct{}, len(f.Columns))
	for _, c := range f.Columns {
		if c == "" {
			return fmt.Errorf("%w: empty column name", ErrInvalidData)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidData, c)
		}
		seen[c] = struct{}{}
	}
	for i, row := range f.Rows {
		if len(row) != len(f.Columns) {
			return fmt.Errorf("%w: row %d has %d values, expected %d", ErrInvalidData, i, len(row), len(f.Columns))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite value at row %d column %q", ErrInvalidData, i, f.Columns[j])
			}
		}
	}
	return nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Width returns the number of columns.
func (f *Frame) Width() int {
	if f == nil {
		return 0
	}
	return len(f.Columns)
}

// ColumnIndex returns the position of name, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidData, name)
	}
	return f.ColumnAt(idx), nil
}

// ColumnAt returns a copy of column j.
func (f *Frame) ColumnAt(j int) []float64 {
	out := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[j]
	}
	return out
}

// Select returns a frame holding copies of the given rows, in order.
func (f *Frame) Select(rows []int) *Frame {
	out := &Frame{Columns: append([]string(nil), f.Columns...), Rows: make([][]float64, len(rows))}
	for i, r := range rows {
		out.Rows[i] = append([]float64(nil), f.Rows[r]...)
	}
	return out
}

// Drop returns a copy of the frame without the named columns.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[int]struct{}, len(names))
	for _, n := range names {
		idx := f.ColumnIndex(n)
		if idx < 0 {
			return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidData, n)
		}
		drop[idx] = struct{}{}
	}
	out := &Frame{Rows: make([][]float64, len(f.Rows))}
	for j, c := range f.Columns {
		if _, ok := drop[j]; !ok {
			out.Columns = append(out.Columns, c)
		}
	}
	for i, row := range f.Rows {
		kept := make([]float64, 0, len(out.Columns))
		for j, v := range row {
			if _, ok := drop[j]; !ok {
				kept = append(kept, v)
			}
		}
		out.Rows[i] = kept
	}
	return out, nil
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{Columns: append([]string(nil), f.Columns...), Rows: make([][]float64, len(f.Rows))}
	for i, row := range f.Rows {
		out.Rows[i] = append([]float64(nil), row...)
	}
	return out
}

// Matrix returns the rows as a dense matrix. The result shares storage with f.
func (f *Frame) Matrix() [][]float64 {
	return f.Rows
}
