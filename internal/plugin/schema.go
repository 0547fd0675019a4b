package plugin

import (
	"math"

	"github.com/born-ml/synth/internal/dataloader"
)

// ColumnSchema is the observed domain of one training column.
type ColumnSchema struct {
	Name     string  `msgpack:"name" json:"name" yaml:"name"`
	Min      float64 `msgpack:"min" json:"min" yaml:"min"`
	Max      float64 `msgpack:"max" json:"max" yaml:"max"`
	Integral bool    `msgpack:"integral" json:"integral" yaml:"integral"`
}

// Schema is the training domain a fitted plugin generates into.
type Schema struct {
	Columns []ColumnSchema `msgpack:"columns" json:"columns" yaml:"columns"`
}

// InferSchema records the range of every column of f and whether it only
// holds whole numbers.
func InferSchema(f *dataloader.Frame) *Schema {
	s := &Schema{Columns: make([]ColumnSchema, f.Width())}
	for j, name := range f.Columns {
		col := ColumnSchema{Name: name, Min: math.Inf(1), Max: math.Inf(-1), Integral: true}
		for _, row := range f.Rows {
			v := row[j]
			col.Min = math.Min(col.Min, v)
			col.Max = math.Max(col.Max, v)
			if v != math.Trunc(v) {
				col.Integral = false
			}
		}
		if f.Len() == 0 {
			col.Min, col.Max = 0, 0
		}
		s.Columns[j] = col
	}
	return s
}

// Width returns the number of columns, or zero for a nil schema.
func (s *Schema) Width() int {
	if s == nil {
		return 0
	}
	return len(s.Columns)
}

// Names returns the column names.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Adapt rounds integral columns of every row in place.
func (s *Schema) Adapt(f *dataloader.Frame) {
	for j, c := range s.Columns {
		if !c.Integral || j >= f.Width() {
			continue
		}
		for _, row := range f.Rows {
			row[j] = math.Round(row[j])
		}
	}
}

// Clip projects every row of f into the training domain in place.
func (s *Schema) Clip(f *dataloader.Frame) {
	s.Adapt(f)
	for j, c := range s.Columns {
		if j >= f.Width() {
			continue
		}
		for _, row := range f.Rows {
			row[j] = math.Max(c.Min, math.Min(c.Max, row[j]))
		}
	}
}

// AsConstraints expresses the domain as range rules.
func (s *Schema) AsConstraints() Constraints {
	if s == nil {
		return Constraints{}
	}
	rules := make([]Rule, 0, 2*len(s.Columns))
	for _, c := range s.Columns {
		rules = append(rules,
			Rule{Column: c.Name, Op: OpGe, Value: c.Min},
			Rule{Column: c.Name, Op: OpLe, Value: c.Max},
		)
	}
	return Constraints{Rules: rules}
}
