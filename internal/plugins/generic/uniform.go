package generic

import (
	"context"
	"math/rand"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/parallel"
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/serialization"
	"github.com/born-ml/synth/internal/stats"
)

// UniformSamplerName is the registered name of UniformSampler.
const UniformSamplerName = "uniform_sampler"

// UniformSampler draws every column independently and uniformly between the
// smallest and largest training value.
type UniformSampler struct {
	plugin.Base
	low, high []float64
}

// NewUniformSampler constructs an unfitted sampler.
func NewUniformSampler(params plugin.Params) (plugin.Plugin, error) {
	return &UniformSampler{Base: plugin.NewBase(UniformSamplerName, plugin.Generic, params)}, nil
}

// Fit implements plugin.Plugin.
func (p *UniformSampler) Fit(ctx context.Context, data dataloader.DataLoader) error {
	return p.RunFit(ctx, data, plugin.TabularData, func(_ context.Context, data dataloader.DataLoader) error {
		frame := data.Frame()
		d := frame.Width()
		p.low, p.high = make([]float64, d), make([]float64, d)
		parallel.For(d, func(j int) {
			p.low[j], p.high[j] = stats.MinMax(frame.ColumnAt(j))
		}, parallel.DefaultConfig())
		return nil
	})
}

// Generate implements plugin.Plugin.
func (p *UniformSampler) Generate(ctx context.Context, count int, opts ...plugin.GenerateOption) (dataloader.DataLoader, error) {
	frame, err := p.RunGenerate(ctx, count, opts, func(rng *rand.Rand, n int) (*dataloader.Frame, error) {
		out := &dataloader.Frame{Columns: p.Schema().Names(), Rows: make([][]float64, n)}
		for i := range out.Rows {
			row := make([]float64, len(p.low))
			for j := range row {
				row[j] = p.low[j] + rng.Float64()*(p.high[j]-p.low[j])
			}
			out.Rows[i] = row
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return p.Wrap(frame)
}

// Save implements plugin.Plugin.
func (p *UniformSampler) Save() ([]byte, error) { return plugin.Save(p) }

// State implements plugin.Plugin.
func (p *UniformSampler) State() (*serialization.Envelope, error) {
	env, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := plugin.SetVector(env, "low", p.low); err != nil {
		return nil, err
	}
	if err := plugin.SetVector(env, "high", p.high); err != nil {
		return nil, err
	}
	return env, nil
}

// Restore implements plugin.Plugin.
func (p *UniformSampler) Restore(env *serialization.Envelope) error {
	if err := p.RestoreBase(env); err != nil {
		return err
	}
	var err error
	if p.low, err = plugin.Vector(env, "low"); err != nil {
		return err
	}
	if p.high, err = plugin.Vector(env, "high"); err != nil {
		return err
	}
	if err := plugin.CheckLen("low", len(p.low), p.Schema().Width()); err != nil {
		return err
	}
	return plugin.CheckLen("high", len(p.high), p.Schema().Width())
}
