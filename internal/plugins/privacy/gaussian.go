package privacy

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/serialization"
	"github.com/born-ml/synth/internal/stats"
)

// DPGaussianName is the registered name of DPGaussian.
const DPGaussianName = "dp_gaussian"

const (
	maxJitterRounds = 60
	minVariance     = 1e-9
)

// DPGaussian fits a multivariate normal whose mean and covariance are
// released with the Gaussian mechanism, half of epsilon each.
//
// Sensitivities are derived from the exact column ranges of the training
// data. Those ranges are kept in the stored schema without noise, as for
// DPHistogram.
type DPGaussian struct {
	plugin.Base
	mean []float64
	cov  [][]float64
	chol [][]float64
}

// NewDPGaussian constructs an unfitted generator.
func NewDPGaussian(params plugin.Params) (plugin.Plugin, error) {
	return &DPGaussian{Base: plugin.NewBase(DPGaussianName, plugin.Privacy, params)}, nil
}

// gaussianSigma is the noise scale of the Gaussian mechanism for the given
// L2 sensitivity.
func gaussianSigma(sensitivity, epsilon, delta float64) float64 {
	return math.Sqrt(2*math.Log(1.25/delta)) * sensitivity / epsilon
}

// Fit implements plugin.Plugin.
func (p *DPGaussian) Fit(ctx context.Context, data dataloader.DataLoader) error {
	params := p.Params()
	epsilon := params.Float("epsilon")
	delta := params.Float("delta")
	return p.RunFit(ctx, data, plugin.TabularData, func(_ context.Context, data dataloader.DataLoader) error {
		rows := data.Frame().Rows
		n := float64(len(rows))
		d := len(rows[0])

		// Sensitivities follow from the column ranges of the schema.
		span := 0.0
		for _, c := range p.Schema().Columns {
			span += (c.Max - c.Min) * (c.Max - c.Min)
		}
		span = math.Sqrt(span)

		rng := p.Rand()
		mean := make([]float64, d)
		for _, row := range rows {
			for j, v := range row {
				mean[j] += v / n
			}
		}
		cov := stats.Covariance(rows, mean)

		sigmaMean := gaussianSigma(span/n, epsilon/2, delta/2)
		for j := range mean {
			mean[j] += sigmaMean * rng.NormFloat64()
		}
		sigmaCov := gaussianSigma(span*span/n, epsilon/2, delta/2)
		for i := 0; i < d; i++ {
			for j := i; j < d; j++ {
				noise := sigmaCov * rng.NormFloat64()
				cov[i][j] += noise
				cov[j][i] = cov[i][j]
			}
		}

		clipMoments(mean, cov, p.Schema())
		chol, err := factorise(cov)
		if err != nil {
			return err
		}
		p.mean, p.cov, p.chol = mean, cov, chol
		return nil
	})
}

// clipMoments bounds the noisy moments by what the column ranges allow: the
// mean inside the range, each variance at most range²/4 and each covariance
// within the Cauchy-Schwarz bound.
func clipMoments(mean []float64, cov [][]float64, schema *plugin.Schema) {
	for j, c := range schema.Columns {
		mean[j] = math.Max(c.Min, math.Min(c.Max, mean[j]))
		width := c.Max - c.Min
		cov[j][j] = math.Max(minVariance, math.Min(width*width/4, cov[j][j]))
	}
	for i := range cov {
		for j := range cov[i] {
			if i == j {
				continue
			}
			bound := math.Sqrt(cov[i][i] * cov[j][j])
			cov[i][j] = math.Max(-bound, math.Min(bound, cov[i][j]))
		}
	}
}

// factorise returns the Cholesky factor of cov, adding growing diagonal
// jitter until cov is positive definite. cov is modified in place.
func factorise(cov [][]float64) ([][]float64, error) {
	jitter := 1e-9
	for round := 0; round < maxJitterRounds; round++ {
		chol, err := stats.Cholesky(cov)
		if err == nil {
			return chol, nil
		}
		if !errors.Is(err, stats.ErrNotPositiveDefinite) {
			return nil, err
		}
		for i := range cov {
			cov[i][i] += jitter
		}
		jitter *= 2
	}
	return nil, stats.ErrNotPositiveDefinite
}

// Generate implements plugin.Plugin.
func (p *DPGaussian) Generate(ctx context.Context, count int, opts ...plugin.GenerateOption) (dataloader.DataLoader, error) {
	frame, err := p.RunGenerate(ctx, count, opts, func(rng *rand.Rand, n int) (*dataloader.Frame, error) {
		out := &dataloader.Frame{Columns: p.Schema().Names(), Rows: make([][]float64, n)}
		for i := range out.Rows {
			out.Rows[i] = stats.MultivariateNormal(rng, p.mean, p.chol)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return p.Wrap(frame)
}

// Save implements plugin.Plugin.
func (p *DPGaussian) Save() ([]byte, error) { return plugin.Save(p) }

// State implements plugin.Plugin.
func (p *DPGaussian) State() (*serialization.Envelope, error) {
	env, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := plugin.SetVector(env, "mean", p.mean); err != nil {
		return nil, err
	}
	if err := plugin.SetMatrix(env, "cov", p.cov); err != nil {
		return nil, err
	}
	return env, nil
}

// Restore implements plugin.Plugin.
func (p *DPGaussian) Restore(env *serialization.Envelope) error {
	if err := p.RestoreBase(env); err != nil {
		return err
	}
	var err error
	if p.mean, err = plugin.Vector(env, "mean"); err != nil {
		return err
	}
	if p.cov, err = plugin.Matrix(env, "cov"); err != nil {
		return err
	}
	d := p.Schema().Width()
	if err := plugin.CheckLen("mean", len(p.mean), d); err != nil {
		return err
	}
	if err := plugin.CheckMatrix("cov", p.cov, d, d); err != nil {
		return err
	}
	p.chol = nil
	if len(p.cov) > 0 {
		p.chol, err = stats.Cholesky(p.cov)
	}
	return err
}
