package timeseries

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/parallel"
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/serialization"
	"github.com/born-ml/synth/internal/stats"
)

// BootstrapName is the registered name of Bootstrap.
const BootstrapName = "ts_bootstrap"

// Bootstrap resamples whole training sequences with replacement. Temporal
// values receive Gaussian jitter of noise times the feature's standard
// deviation; static values, outcomes and observation times are copied.
type Bootstrap struct {
	plugin.Base
	layout   layout
	static   [][]float64
	outcome  [][]float64
	temporal [][][]float64
	times    [][]float64
	std      []float64
}

// NewBootstrap constructs an unfitted generator.
func NewBootstrap(params plugin.Params) (plugin.Plugin, error) {
	return &Bootstrap{Base: plugin.NewBase(BootstrapName, plugin.TimeSeries, params)}, nil
}

// Fit implements plugin.Plugin.
func (p *Bootstrap) Fit(ctx context.Context, data dataloader.DataLoader) error {
	return p.RunFit(ctx, data, []dataloader.LoaderType{dataloader.TimeSeries}, func(_ context.Context, data dataloader.DataLoader) error {
		ts, err := asTimeSeries(data)
		if err != nil {
			return err
		}
		p.layout = layoutOf(ts)
		p.static = ts.Static.Clone().Rows
		p.outcome = ts.Outcome.Clone().Rows
		p.temporal = make([][][]float64, len(ts.Temporal))
		p.times = make([][]float64, len(ts.Temporal))
		for i, seq := range ts.Temporal {
			p.temporal[i] = make([][]float64, len(seq))
			for t, obs := range seq {
				p.temporal[i][t] = append([]float64(nil), obs...)
			}
			p.times[i] = append([]float64(nil), ts.ObservationTimes[i]...)
		}
		p.std = featureStd(p.temporal, len(p.layout.Temporal))
		return nil
	})
}

func featureStd(temporal [][][]float64, features int) []float64 {
	std := make([]float64, features)
	parallel.For(features, func(f int) {
		var col []float64
		for _, seq := range temporal {
			for _, obs := range seq {
				col = append(col, obs[f])
			}
		}
		_, std[f] = stats.MeanStd(col)
	}, parallel.DefaultConfig())
	return std
}

// Generate implements plugin.Plugin.
func (p *Bootstrap) Generate(ctx context.Context, count int, opts ...plugin.GenerateOption) (dataloader.DataLoader, error) {
	noise := p.Params().Float("noise")
	var out dataloader.DataLoader
	err := p.RunGenerateFunc(ctx, count, opts, func(_ context.Context, cfg plugin.GenerateConfig, rng *rand.Rand) error {
		if err := rejectConstraints(cfg); err != nil {
			return err
		}
		static := &dataloader.Frame{Columns: p.layout.Static, Rows: make([][]float64, count)}
		outcome := &dataloader.Frame{Columns: p.layout.Outcome, Rows: make([][]float64, count)}
		temporal := make([][][]float64, count)
		times := make([][]float64, count)
		for i := 0; i < count; i++ {
			k := rng.Intn(len(p.temporal))
			static.Rows[i] = append([]float64(nil), p.static[k]...)
			outcome.Rows[i] = append([]float64(nil), p.outcome[k]...)
			times[i] = append([]float64(nil), p.times[k]...)
			temporal[i] = make([][]float64, len(p.temporal[k]))
			for t, obs := range p.temporal[k] {
				row := make([]float64, len(obs))
				for f, v := range obs {
					row[f] = v + noise*p.std[f]*rng.NormFloat64()
				}
				temporal[i][t] = row
			}
		}
		var err error
		out, err = dataloader.NewTimeSeries(static, temporal, p.layout.Temporal, times, outcome)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save implements plugin.Plugin.
func (p *Bootstrap) Save() ([]byte, error) { return plugin.Save(p) }

// State implements plugin.Plugin.
func (p *Bootstrap) State() (*serialization.Envelope, error) {
	env, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := env.Set("layout", p.layout); err != nil {
		return nil, err
	}
	if err := plugin.SetMatrix(env, "static", p.static); err != nil {
		return nil, err
	}
	if err := plugin.SetMatrix(env, "outcome", p.outcome); err != nil {
		return nil, err
	}
	if err := plugin.SetVector(env, "std", p.std); err != nil {
		return nil, err
	}
	if err := setSequences(env, "sequences", p.temporal, p.times); err != nil {
		return nil, err
	}
	return env, nil
}

// Restore implements plugin.Plugin.
func (p *Bootstrap) Restore(env *serialization.Envelope) error {
	if err := p.RestoreBase(env); err != nil {
		return err
	}
	if err := env.Get("layout", &p.layout); err != nil {
		return err
	}
	var err error
	if p.temporal, p.times, err = sequences(env, "sequences", len(p.layout.Temporal)); err != nil {
		return err
	}
	if p.Fitted() && len(p.temporal) == 0 {
		return fmt.Errorf("%w: no stored sequences", plugin.ErrStateMismatch)
	}
	if p.std, err = plugin.Vector(env, "std"); err != nil {
		return err
	}
	if len(p.temporal) > 0 {
		if err := plugin.CheckLen("std", len(p.std), len(p.layout.Temporal)); err != nil {
			return err
		}
	}
	if p.static, err = plugin.Matrix(env, "static"); err != nil {
		return err
	}
	p.static = padRows(p.static, len(p.temporal))
	if p.outcome, err = plugin.Matrix(env, "outcome"); err != nil {
		return err
	}
	p.outcome = padRows(p.outcome, len(p.temporal))
	if err := plugin.CheckMatrix("static", p.static, len(p.temporal), len(p.layout.Static)); err != nil {
		return err
	}
	return plugin.CheckMatrix("outcome", p.outcome, len(p.temporal), len(p.layout.Outcome))
}

// padRows restores the n zero-width rows of a frame without columns.
func padRows(m [][]float64, n int) [][]float64 {
	if len(m) == 0 && n > 0 {
		return make([][]float64, n)
	}
	return m
}
