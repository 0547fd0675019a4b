package generic

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/logging"
	"github.com/born-ml/synth/internal/parallel"
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/serialization"
	"github.com/born-ml/synth/internal/stats"
)

// GaussianMixtureName is the registered name of GaussianMixture.
const GaussianMixtureName = "gaussian_mixture"

const (
	minVariance  = 1e-6
	gmmTolerance = 1e-6
)

// GaussianMixture models rows as a mixture of n_components Gaussians with
// diagonal covariance, fitted by expectation maximisation.
type GaussianMixture struct {
	plugin.Base
	weights   []float64   // k
	means     [][]float64 // k x d
	variances [][]float64 // k x d
}

// NewGaussianMixture constructs an unfitted mixture.
func NewGaussianMixture(params plugin.Params) (plugin.Plugin, error) {
	return &GaussianMixture{Base: plugin.NewBase(GaussianMixtureName, plugin.Generic, params)}, nil
}

// Fit implements plugin.Plugin.
func (p *GaussianMixture) Fit(ctx context.Context, data dataloader.DataLoader) error {
	params := p.Params()
	components := params.Int("n_components")
	iters := params.Int("n_iter")
	return p.RunFit(ctx, data, plugin.TabularData, func(ctx context.Context, data dataloader.DataLoader) error {
		rows := data.Frame().Rows
		k := min(components, len(rows))
		p.initialise(rows, k)

		resp := make([][]float64, len(rows))
		for i := range resp {
			resp[i] = make([]float64, k)
		}
		prev := math.Inf(-1)
		for it := 0; it < iters; it++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			ll := p.expectation(rows, resp)
			p.maximisation(rows, resp)
			if math.Abs(ll-prev) < gmmTolerance*math.Abs(ll) {
				logging.FromContext(ctx).DebugContext(ctx, "gaussian mixture converged", "iter", it, "log_likelihood", ll)
				break
			}
			prev = ll
		}
		return nil
	})
}

// initialise seeds the means by farthest-point selection starting from a
// random row, and gives every component the pooled variance.
func (p *GaussianMixture) initialise(rows [][]float64, k int) {
	d := len(rows[0])
	pooled := make([]float64, d)
	parallel.For(d, func(j int) {
		col := make([]float64, len(rows))
		for i, row := range rows {
			col[i] = row[j]
		}
		_, std := stats.MeanStd(col)
		pooled[j] = math.Max(std*std, minVariance)
	}, parallel.DefaultConfig())

	p.weights = make([]float64, k)
	p.means = make([][]float64, k)
	p.variances = make([][]float64, k)

	nearest := make([]float64, len(rows))
	for i := range nearest {
		nearest[i] = math.Inf(1)
	}
	pick := p.Rand().Intn(len(rows))
	for c := 0; c < k; c++ {
		p.weights[c] = 1 / float64(k)
		p.means[c] = append([]float64(nil), rows[pick]...)
		p.variances[c] = append([]float64(nil), pooled...)

		far := 0.0
		for i, row := range rows {
			dist := 0.0
			for j, v := range row {
				diff := v - p.means[c][j]
				dist += diff * diff / pooled[j]
			}
			nearest[i] = math.Min(nearest[i], dist)
			if nearest[i] > far {
				far, pick = nearest[i], i
			}
		}
	}
}

func (p *GaussianMixture) logDensity(c int, x []float64) float64 {
	ll := math.Log(p.weights[c])
	for j, v := range x {
		variance := p.variances[c][j]
		diff := v - p.means[c][j]
		ll -= 0.5 * (math.Log(2*math.Pi*variance) + diff*diff/variance)
	}
	return ll
}

// expectation fills resp with posterior component probabilities and returns
// the total log-likelihood.
func (p *GaussianMixture) expectation(rows, resp [][]float64) float64 {
	lls := make([]float64, len(rows))
	parallel.For(len(rows), func(i int) {
		r := resp[i]
		for c := range r {
			r[c] = p.logDensity(c, rows[i])
		}
		norm := stats.LogSumExp(r)
		for c := range r {
			r[c] = math.Exp(r[c] - norm)
		}
		lls[i] = norm
	}, parallel.DefaultConfig())

	total := 0.0
	for _, v := range lls {
		total += v
	}
	return total
}

func (p *GaussianMixture) maximisation(rows, resp [][]float64) {
	d := len(rows[0])
	k := len(p.weights)
	parallel.For(k, func(c int) {
		nk := 0.0
		mean := make([]float64, d)
		for i, row := range rows {
			w := resp[i][c]
			nk += w
			for j, v := range row {
				mean[j] += w * v
			}
		}
		if nk < 1e-12 {
			return
		}
		variance := make([]float64, d)
		for j := range mean {
			mean[j] /= nk
		}
		for i, row := range rows {
			w := resp[i][c]
			for j, v := range row {
				diff := v - mean[j]
				variance[j] += w * diff * diff
			}
		}
		for j := range variance {
			variance[j] = math.Max(variance[j]/nk, minVariance)
		}
		p.weights[c] = nk / float64(len(rows))
		p.means[c] = mean
		p.variances[c] = variance
	}, parallel.DefaultConfig())
	stats.Normalize(p.weights)
}

// Generate implements plugin.Plugin.
func (p *GaussianMixture) Generate(ctx context.Context, count int, opts ...plugin.GenerateOption) (dataloader.DataLoader, error) {
	frame, err := p.RunGenerate(ctx, count, opts, func(rng *rand.Rand, n int) (*dataloader.Frame, error) {
		if len(p.weights) == 0 {
			return nil, fmt.Errorf("%w: empty mixture", plugin.ErrNotFitted)
		}
		out := &dataloader.Frame{Columns: p.Schema().Names(), Rows: make([][]float64, n)}
		for i := range out.Rows {
			c := stats.Multinomial(rng, p.weights)
			row := make([]float64, len(p.means[c]))
			for j := range row {
				row[j] = p.means[c][j] + rng.NormFloat64()*math.Sqrt(p.variances[c][j])
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
func (p *GaussianMixture) Save() ([]byte, error) { return plugin.Save(p) }

// State implements plugin.Plugin.
func (p *GaussianMixture) State() (*serialization.Envelope, error) {
	env, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := plugin.SetVector(env, "weights", p.weights); err != nil {
		return nil, err
	}
	if err := plugin.SetMatrix(env, "means", p.means); err != nil {
		return nil, err
	}
	if err := plugin.SetMatrix(env, "variances", p.variances); err != nil {
		return nil, err
	}
	return env, nil
}

// Restore implements plugin.Plugin.
func (p *GaussianMixture) Restore(env *serialization.Envelope) error {
	if err := p.RestoreBase(env); err != nil {
		return err
	}
	var err error
	if p.weights, err = plugin.Vector(env, "weights"); err != nil {
		return err
	}
	if p.means, err = plugin.Matrix(env, "means"); err != nil {
		return err
	}
	if p.variances, err = plugin.Matrix(env, "variances"); err != nil {
		return err
	}
	k, d := len(p.weights), p.Schema().Width()
	if p.Fitted() && k == 0 {
		return fmt.Errorf("%w: weights is empty", plugin.ErrStateMismatch)
	}
	if err := plugin.CheckMatrix("means", p.means, k, d); err != nil {
		return err
	}
	return plugin.CheckMatrix("variances", p.variances, k, d)
}
