package plugin

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/born-ml/synth/internal/dataloader"
)

// Op is a comparison operator in a Rule.
type Op string

// Supported operators.
const (
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
	OpEq Op = "=="
	OpIn Op = "in"
)

// Rule restricts one column. Values is used by OpIn, Value by the others.
type Rule struct {
	Column string    `msgpack:"column" json:"column" yaml:"column"`
	Op     Op        `msgpack:"op" json:"op" yaml:"op"`
	Value  float64   `msgpack:"value,omitempty" json:"value,omitempty" yaml:"value,omitempty"`
	Values []float64 `msgpack:"values,omitempty" json:"values,omitempty" yaml:"values,omitempty"`
}

// ParseRule parses "column op value", for example "age >= 18" or
// "label in 0|1".
func ParseRule(s string) (Rule, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Rule{}, fmt.Errorf("%w: %q: want \"column op value\"", ErrInvalidConstraint, s)
	}
	r := Rule{Column: fields[0], Op: Op(fields[1])}
	switch r.Op {
	case OpLt, OpLe, OpGt, OpGe, OpEq:
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %q: %v", ErrInvalidConstraint, s, err)
		}
		r.Value = v
	case OpIn:
		for _, part := range strings.Split(fields[2], "|") {
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: %q: %v", ErrInvalidConstraint, s, err)
			}
			r.Values = append(r.Values, v)
		}
	default:
		return Rule{}, fmt.Errorf("%w: %q: unknown operator %q", ErrInvalidConstraint, s, fields[1])
	}
	return r, nil
}

// Holds reports whether v satisfies the rule.
func (r Rule) Holds(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	switch r.Op {
	case OpLt:
		return v < r.Value
	case OpLe:
		return v <= r.Value
	case OpGt:
		return v > r.Value
	case OpGe:
		return v >= r.Value
	case OpEq:
		return v == r.Value
	case OpIn:
		return slices.Contains(r.Values, v)
	default:
		return false
	}
}

func (r Rule) String() string {
	if r.Op == OpIn {
		parts := make([]string, len(r.Values))
		for i, v := range r.Values {
			parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return r.Column + " in " + strings.Join(parts, "|")
	}
	return fmt.Sprintf("%s %s %g", r.Column, r.Op, r.Value)
}

// Constraints is a conjunction of rules.
type Constraints struct {
	Rules []Rule `msgpack:"rules" json:"rules" yaml:"rules"`
}

// Empty reports whether there are no rules.
func (c Constraints) Empty() bool { return len(c.Rules) == 0 }

// And returns the conjunction of c and other.
func (c Constraints) And(other Constraints) Constraints {
	rules := make([]Rule, 0, len(c.Rules)+len(other.Rules))
	rules = append(rules, c.Rules...)
	rules = append(rules, other.Rules...)
	return Constraints{Rules: rules}
}

// Columns returns the distinct columns the rules refer to.
func (c Constraints) Columns() []string {
	var out []string
	for _, r := range c.Rules {
		if !slices.Contains(out, r.Column) {
			out = append(out, r.Column)
		}
	}
	return out
}

func (c Constraints) resolve(f *dataloader.Frame) ([]int, error) {
	idx := make([]int, len(c.Rules))
	for i, r := range c.Rules {
		j := f.ColumnIndex(r.Column)
		if j < 0 {
			return nil, fmt.Errorf("%w: column %q not in data", ErrInvalidConstraint, r.Column)
		}
		idx[i] = j
	}
	return idx, nil
}

// Match returns the rows of f that satisfy every rule.
func (c Constraints) Match(f *dataloader.Frame) (*dataloader.Frame, error) {
	idx, err := c.resolve(f)
	if err != nil {
		return nil, err
	}
	keep := make([]int, 0, f.Len())
	for i, row := range f.Rows {
		if c.holds(row, idx) {
			keep = append(keep, i)
		}
	}
	return f.Select(keep), nil
}

// IsValid reports whether every row of f satisfies every rule.
func (c Constraints) IsValid(f *dataloader.Frame) (bool, error) {
	idx, err := c.resolve(f)
	if err != nil {
		return false, err
	}
	for _, row := range f.Rows {
		if !c.holds(row, idx) {
			return false, nil
		}
	}
	return true, nil
}

func (c Constraints) holds(row []float64, idx []int) bool {
	for i, r := range c.Rules {
		if !r.Holds(row[idx[i]]) {
			return false
		}
	}
	return true
}
