package generic

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/serialization"
)

// DummySamplerName is the registered name of DummySampler.
const DummySamplerName = "dummy_sampler"

// DummySampler memorises the training table and resamples its rows with
// replacement. It is a baseline for privacy and fidelity metrics.
type DummySampler struct {
	plugin.Base
	rows [][]float64
}

// NewDummySampler constructs an unfitted sampler.
func NewDummySampler(params plugin.Params) (plugin.Plugin, error) {
	return &DummySampler{Base: plugin.NewBase(DummySamplerName, plugin.Generic, params)}, nil
}

// Fit implements plugin.Plugin.
func (p *DummySampler) Fit(ctx context.Context, data dataloader.DataLoader) error {
	return p.RunFit(ctx, data, plugin.TabularData, func(_ context.Context, data dataloader.DataLoader) error {
		p.rows = data.Frame().Clone().Rows
		return nil
	})
}

// Generate implements plugin.Plugin.
func (p *DummySampler) Generate(ctx context.Context, count int, opts ...plugin.GenerateOption) (dataloader.DataLoader, error) {
	frame, err := p.RunGenerate(ctx, count, opts, func(rng *rand.Rand, n int) (*dataloader.Frame, error) {
		out := &dataloader.Frame{Columns: p.Schema().Names(), Rows: make([][]float64, n)}
		for i := range out.Rows {
			out.Rows[i] = append([]float64(nil), p.rows[rng.Intn(len(p.rows))]...)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return p.Wrap(frame)
}

// Save implements plugin.Plugin.
func (p *DummySampler) Save() ([]byte, error) { return plugin.Save(p) }

// State implements plugin.Plugin.
func (p *DummySampler) State() (*serialization.Envelope, error) {
	env, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := plugin.SetMatrix(env, "rows", p.rows); err != nil {
		return nil, err
	}
	return env, nil
}

// Restore implements plugin.Plugin.
func (p *DummySampler) Restore(env *serialization.Envelope) error {
	if err := p.RestoreBase(env); err != nil {
		return err
	}
	var err error
	if p.rows, err = plugin.Matrix(env, "rows"); err != nil {
		return err
	}
	if p.Fitted() && len(p.rows) == 0 {
		return fmt.Errorf("%w: rows is empty", plugin.ErrStateMismatch)
	}
	return plugin.CheckMatrix("rows", p.rows, len(p.rows), p.Schema().Width())
}
