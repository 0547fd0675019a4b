package timeseries

import (
	"fmt"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/serialization"
)

// layout records the column names of a time-series loader.
type layout struct {
	Static   []string `msgpack:"static"`
	Temporal []string `msgpack:"temporal"`
	Outcome  []string `msgpack:"outcome"`
}

func layoutOf(l *dataloader.TimeSeriesDataLoader) layout {
	return layout{
		Static:   append([]string(nil), l.Static.Columns...),
		Temporal: append([]string(nil), l.TemporalColumns...),
		Outcome:  append([]string(nil), l.Outcome.Columns...),
	}
}

func asTimeSeries(data dataloader.DataLoader) (*dataloader.TimeSeriesDataLoader, error) {
	ts, ok := data.(*dataloader.TimeSeriesDataLoader)
	if !ok {
		return nil, fmt.Errorf("%w: expected *dataloader.TimeSeriesDataLoader, got %T", plugin.ErrUnsupportedData, data)
	}
	return ts, nil
}

// rejectConstraints reports an error for row constraints, which do not apply
// to sequences.
func rejectConstraints(cfg plugin.GenerateConfig) error {
	if !cfg.Constraints.Empty() {
		return fmt.Errorf("%w: constraints are not supported for time series", plugin.ErrInvalidConstraint)
	}
	return nil
}

// setSequences stores every observation as one row of key+".values", with
// sequence lengths and flattened times alongside.
func setSequences(env *serialization.Envelope, key string, temporal [][][]float64, times [][]float64) error {
	var values [][]float64
	var flatTimes, lengths []float64
	for i, seq := range temporal {
		lengths = append(lengths, float64(len(seq)))
		values = append(values, seq...)
		flatTimes = append(flatTimes, times[i]...)
	}
	if err := plugin.SetMatrix(env, key+".values", values); err != nil {
		return err
	}
	if err := plugin.SetVector(env, key+".times", flatTimes); err != nil {
		return err
	}
	return plugin.SetVector(env, key+".lengths", lengths)
}

// sequences reads sequences stored by setSequences and checks that every
// observation has width values.
func sequences(env *serialization.Envelope, key string, width int) ([][][]float64, [][]float64, error) {
	values, err := plugin.Matrix(env, key+".values")
	if err != nil {
		return nil, nil, err
	}
	flatTimes, err := plugin.Vector(env, key+".times")
	if err != nil {
		return nil, nil, err
	}
	lengths, err := plugin.Vector(env, key+".lengths")
	if err != nil {
		return nil, nil, err
	}
	if err := plugin.CheckLen(key+".times", len(flatTimes), len(values)); err != nil {
		return nil, nil, err
	}
	if len(values) > 0 {
		if err := plugin.CheckMatrix(key+".values", values, len(values), width); err != nil {
			return nil, nil, err
		}
	}
	temporal := make([][][]float64, len(lengths))
	times := make([][]float64, len(lengths))
	pos := 0
	for i, l := range lengths {
		n, err := plugin.Count(key+".lengths", l)
		if err != nil {
			return nil, nil, err
		}
		if n == 0 || n > len(values)-pos {
			return nil, nil, fmt.Errorf("%w: %s: sequence %d of length %d does not fit the stored observations", plugin.ErrStateMismatch, key, i, n)
		}
		temporal[i] = values[pos : pos+n]
		times[i] = flatTimes[pos : pos+n]
		pos += n
	}
	if err := plugin.CheckLen(key+".values", len(values), pos); err != nil {
		return nil, nil, err
	}
	return temporal, times, nil
}
