package plugin

import (
	"fmt"
	"math/rand"
	"slices"
	"sort"

	"github.com/spf13/cast"
)

// Names of the parameters every plugin accepts.
const (
	ParamStrict           = "strict"
	ParamRandomState      = "random_state"
	ParamSamplingPatience = "sampling_patience"
)

// DefaultSamplingPatience bounds the number of sampling rounds in Generate.
const DefaultSamplingPatience = 500

// Params holds validated hyperparameters keyed by name.
type Params map[string]any

// Int returns the named parameter as an int, or 0 when absent.
func (p Params) Int(name string) int { return cast.ToInt(p[name]) }

// Int64 returns the named parameter as an int64, or 0 when absent.
func (p Params) Int64(name string) int64 { return cast.ToInt64(p[name]) }

// Float returns the named parameter as a float64, or 0 when absent.
func (p Params) Float(name string) float64 { return cast.ToFloat64(p[name]) }

// Bool returns the named parameter as a bool, or false when absent.
func (p Params) Bool(name string) bool { return cast.ToBool(p[name]) }

// String returns the named parameter as a string, or "" when absent.
func (p Params) String(name string) string { return cast.ToString(p[name]) }

// Names returns the parameter names, sorted.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ParamKind is the value type of a hyperparameter.
type ParamKind int

// Supported kinds.
const (
	KindInt ParamKind = iota
	KindFloat
	KindBool
	KindString
)

// String returns the kind name.
func (k ParamKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("ParamKind(%d)", int(k))
	}
}

// ParamSpec describes one hyperparameter. Numeric bounds apply when Min < Max
// and are inclusive. Fixed parameters keep their default under Space.Sample.
type ParamSpec struct {
	Name    string
	Kind    ParamKind
	Default any
	Min     float64
	Max     float64
	Choices []string
	Fixed   bool
}

// IntParam describes an integer parameter in [lo, hi].
func IntParam(name string, def, lo, hi int) ParamSpec {
	return ParamSpec{Name: name, Kind: KindInt, Default: def, Min: float64(lo), Max: float64(hi)}
}

// FloatParam describes a float parameter in [lo, hi].
func FloatParam(name string, def, lo, hi float64) ParamSpec {
	return ParamSpec{Name: name, Kind: KindFloat, Default: def, Min: lo, Max: hi}
}

// BoolParam describes a boolean parameter.
func BoolParam(name string, def bool) ParamSpec {
	return ParamSpec{Name: name, Kind: KindBool, Default: def}
}

// ChoiceParam describes a string parameter restricted to choices.
func ChoiceParam(name, def string, choices ...string) ParamSpec {
	return ParamSpec{Name: name, Kind: KindString, Default: def, Choices: choices}
}

func (s ParamSpec) bounded() bool { return s.Min < s.Max }

// Coerce converts v to the spec's kind and checks bounds and choices.
func (s ParamSpec) Coerce(v any) (any, error) {
	switch s.Kind {
	case KindInt:
		n, err := cast.ToIntE(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParam, s.Name, err)
		}
		if s.bounded() && (float64(n) < s.Min || float64(n) > s.Max) {
			return nil, fmt.Errorf("%w: %s=%d outside [%g, %g]", ErrInvalidParam, s.Name, n, s.Min, s.Max)
		}
		return n, nil
	case KindFloat:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParam, s.Name, err)
		}
		if s.bounded() && (f < s.Min || f > s.Max) {
			return nil, fmt.Errorf("%w: %s=%g outside [%g, %g]", ErrInvalidParam, s.Name, f, s.Min, s.Max)
		}
		return f, nil
	case KindBool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParam, s.Name, err)
		}
		return b, nil
	case KindString:
		str, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParam, s.Name, err)
		}
		if len(s.Choices) > 0 && !slices.Contains(s.Choices, str) {
			return nil, fmt.Errorf("%w: %s=%q not in %v", ErrInvalidParam, s.Name, str, s.Choices)
		}
		return str, nil
	default:
		return nil, fmt.Errorf("%w: %s has unknown kind %v", ErrInvalidParam, s.Name, s.Kind)
	}
}

// Space is the set of hyperparameters a plugin accepts.
type Space []ParamSpec

// CommonSpace returns the parameters shared by every plugin.
func CommonSpace() Space {
	return Space{
		{Name: ParamStrict, Kind: KindBool, Default: true, Fixed: true},
		{Name: ParamRandomState, Kind: KindInt, Default: 0, Fixed: true},
		{Name: ParamSamplingPatience, Kind: KindInt, Default: DefaultSamplingPatience, Min: 1, Max: 1 << 20, Fixed: true},
	}
}

// Lookup returns the spec named name.
func (s Space) Lookup(name string) (ParamSpec, bool) {
	for _, spec := range s {
		if spec.Name == name {
			return spec, true
		}
	}
	return ParamSpec{}, false
}

// Names returns the parameter names in declaration order.
func (s Space) Names() []string {
	names := make([]string, len(s))
	for i, spec := range s {
		names[i] = spec.Name
	}
	return names
}

// Defaults returns every parameter at its default value.
func (s Space) Defaults() Params {
	out := make(Params, len(s))
	for _, spec := range s {
		out[spec.Name] = spec.Default
	}
	return out
}

// Validate coerces raw against the space and fills defaults for missing
// names. Names outside the space return ErrUnknownParam.
func (s Space) Validate(raw map[string]any) (Params, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Params, len(s))
	for _, k := range keys {
		spec, ok := s.Lookup(k)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParam, k)
		}
		v, err := spec.Coerce(raw[k])
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	for _, spec := range s {
		if _, ok := out[spec.Name]; ok {
			continue
		}
		v, err := spec.Coerce(spec.Default)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = v
	}
	return out, nil
}

// Sample draws a random configuration from the space.
func (s Space) Sample(rng *rand.Rand) Params {
	out := make(Params, len(s))
	for _, spec := range s {
		out[spec.Name] = spec.sample(rng)
	}
	return out
}

func (s ParamSpec) sample(rng *rand.Rand) any {
	if s.Fixed {
		return s.Default
	}
	switch s.Kind {
	case KindInt:
		if !s.bounded() {
			return s.Default
		}
		lo, hi := int(s.Min), int(s.Max)
		return lo + rng.Intn(hi-lo+1)
	case KindFloat:
		if !s.bounded() {
			return s.Default
		}
		return s.Min + rng.Float64()*(s.Max-s.Min)
	case KindBool:
		return rng.Intn(2) == 1
	case KindString:
		if len(s.Choices) == 0 {
			return s.Default
		}
		return s.Choices[rng.Intn(len(s.Choices))]
	default:
		return s.Default
	}
}
