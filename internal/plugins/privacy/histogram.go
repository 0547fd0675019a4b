package privacy

import (
	"context"
	"math"
	"math/rand"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/plugins/generic"
	"github.com/born-ml/synth/internal/serialization"
	"github.com/born-ml/synth/internal/stats"
)

// DPHistogramName is the registered name of DPHistogram.
const DPHistogramName = "dp_histogram"

// DPHistogram releases one noisy histogram per column. The privacy budget is
// split evenly across columns and each bin count receives Laplace noise of
// scale columns/epsilon.
//
// Only the bin counts are noised. The bin edges span the exact minimum and
// maximum of each training column, and the schema stored with the model and
// used to clip generated rows records the same bounds. Those bounds are
// released as is and are not covered by epsilon; callers who need them
// private must supply public bounds by clipping the data before Fit.
type DPHistogram struct {
	plugin.Base
	hists []stats.Histogram
}

// NewDPHistogram constructs an unfitted generator.
func NewDPHistogram(params plugin.Params) (plugin.Plugin, error) {
	return &DPHistogram{Base: plugin.NewBase(DPHistogramName, plugin.Privacy, params)}, nil
}

// Fit implements plugin.Plugin.
func (p *DPHistogram) Fit(ctx context.Context, data dataloader.DataLoader) error {
	params := p.Params()
	epsilon := params.Float("epsilon")
	bins := params.Int("n_bins")
	return p.RunFit(ctx, data, plugin.TabularData, func(_ context.Context, data dataloader.DataLoader) error {
		frame := data.Frame()
		hists := generic.FitHistograms(frame, bins)
		scale := float64(len(hists)) / epsilon
		n := float64(frame.Len())
		rng := p.Rand()
		for _, h := range hists {
			for b := range h.Probs {
				h.Probs[b] = math.Max(0, h.Probs[b]*n+stats.Laplace(rng, scale))
			}
			stats.Normalize(h.Probs)
		}
		p.hists = hists
		return nil
	})
}

// Generate implements plugin.Plugin.
func (p *DPHistogram) Generate(ctx context.Context, count int, opts ...plugin.GenerateOption) (dataloader.DataLoader, error) {
	frame, err := p.RunGenerate(ctx, count, opts, func(rng *rand.Rand, n int) (*dataloader.Frame, error) {
		return generic.SampleHistograms(rng, p.Schema().Names(), p.hists, n), nil
	})
	if err != nil {
		return nil, err
	}
	return p.Wrap(frame)
}

// Save implements plugin.Plugin.
func (p *DPHistogram) Save() ([]byte, error) { return plugin.Save(p) }

// State implements plugin.Plugin.
func (p *DPHistogram) State() (*serialization.Envelope, error) {
	env, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := generic.SetHistograms(env, "histograms", p.hists); err != nil {
		return nil, err
	}
	return env, nil
}

// Restore implements plugin.Plugin.
func (p *DPHistogram) Restore(env *serialization.Envelope) error {
	if err := p.RestoreBase(env); err != nil {
		return err
	}
	var err error
	if p.hists, err = generic.Histograms(env, "histograms"); err != nil {
		return err
	}
	return plugin.CheckLen("histograms", len(p.hists), p.Schema().Width())
}
