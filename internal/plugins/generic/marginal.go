package generic

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

// MarginalDistributionsName is the registered name of MarginalDistributions.
const MarginalDistributionsName = "marginal_distributions"

// MarginalDistributions samples each column independently from an n_bins
// histogram of its training values.
type MarginalDistributions struct {
	plugin.Base
	hists []stats.Histogram
}

// NewMarginalDistributions constructs an unfitted sampler.
func NewMarginalDistributions(params plugin.Params) (plugin.Plugin, error) {
	return &MarginalDistributions{Base: plugin.NewBase(MarginalDistributionsName, plugin.Generic, params)}, nil
}

// Fit implements plugin.Plugin.
func (p *MarginalDistributions) Fit(ctx context.Context, data dataloader.DataLoader) error {
	bins := p.Params().Int("n_bins")
	return p.RunFit(ctx, data, plugin.TabularData, func(_ context.Context, data dataloader.DataLoader) error {
		p.hists = FitHistograms(data.Frame(), bins)
		return nil
	})
}

// FitHistograms builds one histogram per column in parallel.
func FitHistograms(frame *dataloader.Frame, bins int) []stats.Histogram {
	hists := make([]stats.Histogram, frame.Width())
	parallel.For(len(hists), func(j int) {
		hists[j] = stats.NewHistogram(frame.ColumnAt(j), bins)
	}, parallel.DefaultConfig())
	return hists
}

// SampleHistograms draws n rows from independent per-column histograms.
func SampleHistograms(rng *rand.Rand, columns []string, hists []stats.Histogram, n int) *dataloader.Frame {
	out := &dataloader.Frame{Columns: columns, Rows: make([][]float64, n)}
	for i := range out.Rows {
		row := make([]float64, len(hists))
		for j, h := range hists {
			row[j] = h.Sample(rng)
		}
		out.Rows[i] = row
	}
	return out
}

// Generate implements plugin.Plugin.
func (p *MarginalDistributions) Generate(ctx context.Context, count int, opts ...plugin.GenerateOption) (dataloader.DataLoader, error) {
	frame, err := p.RunGenerate(ctx, count, opts, func(rng *rand.Rand, n int) (*dataloader.Frame, error) {
		return SampleHistograms(rng, p.Schema().Names(), p.hists, n), nil
	})
	if err != nil {
		return nil, err
	}
	return p.Wrap(frame)
}

// Save implements plugin.Plugin.
func (p *MarginalDistributions) Save() ([]byte, error) { return plugin.Save(p) }

// State implements plugin.Plugin.
func (p *MarginalDistributions) State() (*serialization.Envelope, error) {
	env, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := SetHistograms(env, "histograms", p.hists); err != nil {
		return nil, err
	}
	return env, nil
}

// Restore implements plugin.Plugin.
func (p *MarginalDistributions) Restore(env *serialization.Envelope) error {
	if err := p.RestoreBase(env); err != nil {
		return err
	}
	var err error
	if p.hists, err = Histograms(env, "histograms"); err != nil {
		return err
	}
	return plugin.CheckLen("histograms", len(p.hists), p.Schema().Width())
}

// SetHistograms stores hists as a bin-count vector under key+".bins" and one
// flattened row per histogram under key.
func SetHistograms(env *serialization.Envelope, key string, hists []stats.Histogram) error {
	bins := make([]float64, len(hists))
	width := 0
	for i, h := range hists {
		bins[i] = float64(len(h.Probs))
		width = max(width, len(h.Edges)+len(h.Probs))
	}
	m := make([][]float64, len(hists))
	for i, h := range hists {
		row := make([]float64, width)
		copy(row, h.Flatten())
		m[i] = row
	}
	if err := plugin.SetVector(env, key+".bins", bins); err != nil {
		return err
	}
	return plugin.SetMatrix(env, key, m)
}

// Histograms reads histograms stored by SetHistograms.
func Histograms(env *serialization.Envelope, key string) ([]stats.Histogram, error) {
	bins, err := plugin.Vector(env, key+".bins")
	if err != nil {
		return nil, err
	}
	m, err := plugin.Matrix(env, key)
	if err != nil {
		return nil, err
	}
	if err := plugin.CheckLen(key, len(m), len(bins)); err != nil {
		return nil, err
	}
	hists := make([]stats.Histogram, len(bins))
	for i, b := range bins {
		n, err := plugin.Count(key+".bins", b)
		if err != nil {
			return nil, err
		}
		if n < 1 || 2*n+1 > len(m[i]) {
			return nil, fmt.Errorf("%w: %s: histogram %d has %d bins in a row of %d values", plugin.ErrStateMismatch, key, i, n, len(m[i]))
		}
		hists[i] = stats.UnflattenHistogram(m[i], n)
	}
	return hists, nil
}
