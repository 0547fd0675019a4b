package timeseries

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/parallel"
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/serialization"
	"github.com/born-ml/synth/internal/stats"
)

// AutoregressiveName is the registered name of Autoregressive.
const AutoregressiveName = "ts_autoregressive"

const generatorPrefix = "generator."

// dynamics is the fitted AR(1) model of one temporal feature.
type dynamics struct {
	Phi, Intercept, Sigma float64
	InitMean, InitStd     float64
	Low, High             float64
}

func (d dynamics) row() []float64 {
	return []float64{d.Phi, d.Intercept, d.Sigma, d.InitMean, d.InitStd, d.Low, d.High}
}

func dynamicsFromRow(r []float64) (dynamics, error) {
	if len(r) != 7 {
		return dynamics{}, fmt.Errorf("dynamics row has %d values, expected 7", len(r))
	}
	return dynamics{Phi: r[0], Intercept: r[1], Sigma: r[2], InitMean: r[3], InitStd: r[4], Low: r[5], High: r[6]}, nil
}

// timing summarises observation times.
type timing struct {
	FirstMean float64 `msgpack:"first_mean"`
	FirstStd  float64 `msgpack:"first_std"`
	DeltaMean float64 `msgpack:"delta_mean"`
	DeltaStd  float64 `msgpack:"delta_std"`
}

// Autoregressive models every temporal feature as an independent AR(1)
// process fitted by least squares across all sequences. Sequence lengths
// are drawn from the empirical distribution; static and outcome columns come
// from a nested tabular generator chosen by the generator parameter.
type Autoregressive struct {
	plugin.Base
	layout   layout
	features []dynamics
	lengths  []float64
	timing   timing
	nested   plugin.Plugin
}

// NewAutoregressive constructs an unfitted generator.
func NewAutoregressive(params plugin.Params) (plugin.Plugin, error) {
	return &Autoregressive{Base: plugin.NewBase(AutoregressiveName, plugin.TimeSeries, params)}, nil
}

// Fit implements plugin.Plugin.
func (p *Autoregressive) Fit(ctx context.Context, data dataloader.DataLoader) error {
	return p.RunFit(ctx, data, []dataloader.LoaderType{dataloader.TimeSeries}, func(ctx context.Context, data dataloader.DataLoader) error {
		ts, err := asTimeSeries(data)
		if err != nil {
			return err
		}
		p.layout = layoutOf(ts)
		p.features = make([]dynamics, len(ts.TemporalColumns))
		parallel.For(len(p.features), func(f int) {
			p.features[f] = fitAR1(ts.Temporal, f)
		}, parallel.DefaultConfig())

		p.lengths = p.lengths[:0]
		for _, n := range ts.SequenceLengths() {
			p.lengths = append(p.lengths, float64(n))
		}
		p.timing = fitTiming(ts.ObservationTimes)

		p.nested = nil
		side, err := sideFrame(ts)
		if err != nil || side == nil {
			return err
		}
		child, err := plugin.New(p.Params().String("generator"), p.NestedParams())
		if err != nil {
			return err
		}
		loader, err := dataloader.NewGeneric(side, "")
		if err != nil {
			return err
		}
		if err := child.Fit(ctx, loader); err != nil {
			return fmt.Errorf("static and outcome generator: %w", err)
		}
		p.nested = child
		return nil
	})
}

// sideFrame joins static and outcome columns, or returns nil when there are
// none.
func sideFrame(ts *dataloader.TimeSeriesDataLoader) (*dataloader.Frame, error) {
	cols := append(append([]string(nil), ts.Static.Columns...), ts.Outcome.Columns...)
	if len(cols) == 0 {
		return nil, nil
	}
	rows := make([][]float64, ts.Len())
	for i := range rows {
		rows[i] = append(append([]float64(nil), ts.Static.Rows[i]...), ts.Outcome.Rows[i]...)
	}
	return dataloader.NewFrame(cols, rows)
}

func fitAR1(temporal [][][]float64, f int) dynamics {
	var prev, next, first, all []float64
	for _, seq := range temporal {
		first = append(first, seq[0][f])
		for t, obs := range seq {
			all = append(all, obs[f])
			if t > 0 {
				prev = append(prev, seq[t-1][f])
				next = append(next, obs[f])
			}
		}
	}
	d := dynamics{}
	d.Low, d.High = stats.MinMax(all)
	d.InitMean, d.InitStd = stats.MeanStd(first)

	mx, sx := stats.MeanStd(prev)
	my, _ := stats.MeanStd(next)
	if len(prev) < 2 || sx == 0 {
		mean, std := stats.MeanStd(all)
		d.Intercept, d.Sigma = mean, std
		return d
	}
	cov := 0.0
	for i := range prev {
		cov += (prev[i] - mx) * (next[i] - my)
	}
	cov /= float64(len(prev))
	d.Phi = cov / (sx * sx)
	d.Intercept = my - d.Phi*mx

	resid := 0.0
	for i := range prev {
		e := next[i] - d.Intercept - d.Phi*prev[i]
		resid += e * e
	}
	d.Sigma = math.Sqrt(resid / float64(len(prev)))
	return d
}

func fitTiming(times [][]float64) timing {
	var first, deltas []float64
	for _, seq := range times {
		first = append(first, seq[0])
		for t := 1; t < len(seq); t++ {
			deltas = append(deltas, seq[t]-seq[t-1])
		}
	}
	var tm timing
	tm.FirstMean, tm.FirstStd = stats.MeanStd(first)
	tm.DeltaMean, tm.DeltaStd = stats.MeanStd(deltas)
	if len(deltas) == 0 {
		tm.DeltaMean = 1
	}
	return tm
}

// Generate implements plugin.Plugin.
func (p *Autoregressive) Generate(ctx context.Context, count int, opts ...plugin.GenerateOption) (dataloader.DataLoader, error) {
	var out dataloader.DataLoader
	err := p.RunGenerateFunc(ctx, count, opts, func(ctx context.Context, cfg plugin.GenerateConfig, rng *rand.Rand) error {
		if err := rejectConstraints(cfg); err != nil {
			return err
		}
		static, outcome, err := p.generateSide(ctx, count, rng)
		if err != nil {
			return err
		}
		temporal := make([][][]float64, count)
		times := make([][]float64, count)
		for i := 0; i < count; i++ {
			temporal[i], times[i] = p.sequence(rng)
		}
		out, err = dataloader.NewTimeSeries(static, temporal, p.layout.Temporal, times, outcome)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Autoregressive) generateSide(ctx context.Context, count int, rng *rand.Rand) (static, outcome *dataloader.Frame, err error) {
	static = &dataloader.Frame{Columns: p.layout.Static, Rows: make([][]float64, count)}
	outcome = &dataloader.Frame{Columns: p.layout.Outcome, Rows: make([][]float64, count)}
	if p.nested == nil {
		return static, outcome, nil
	}
	side, err := p.nested.Generate(ctx, count, plugin.WithSeed(rng.Int63()))
	if err != nil {
		return nil, nil, fmt.Errorf("static and outcome generator: %w", err)
	}
	rows := side.Frame().Rows
	if len(rows) < count {
		return nil, nil, fmt.Errorf("%w: nested generator returned %d of %d rows", plugin.ErrConstraintsUnsatisfied, len(rows), count)
	}
	s := len(p.layout.Static)
	for i := 0; i < count; i++ {
		static.Rows[i] = append([]float64(nil), rows[i][:s]...)
		outcome.Rows[i] = append([]float64(nil), rows[i][s:]...)
	}
	return static, outcome, nil
}

func (p *Autoregressive) sequence(rng *rand.Rand) ([][]float64, []float64) {
	n := int(p.lengths[rng.Intn(len(p.lengths))])
	seq := make([][]float64, n)
	times := make([]float64, n)
	for t := 0; t < n; t++ {
		obs := make([]float64, len(p.features))
		for f, d := range p.features {
			var v float64
			if t == 0 {
				v = d.InitMean + d.InitStd*rng.NormFloat64()
			} else {
				v = d.Intercept + d.Phi*seq[t-1][f] + d.Sigma*rng.NormFloat64()
			}
			obs[f] = math.Max(d.Low, math.Min(d.High, v))
		}
		seq[t] = obs
		if t == 0 {
			times[t] = p.timing.FirstMean + p.timing.FirstStd*rng.NormFloat64()
		} else {
			times[t] = times[t-1] + math.Max(0, p.timing.DeltaMean+p.timing.DeltaStd*rng.NormFloat64())
		}
	}
	return seq, times
}

// Save implements plugin.Plugin.
func (p *Autoregressive) Save() ([]byte, error) { return plugin.Save(p) }

// State implements plugin.Plugin.
func (p *Autoregressive) State() (*serialization.Envelope, error) {
	env, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := env.Set("layout", p.layout); err != nil {
		return nil, err
	}
	if err := env.Set("timing", p.timing); err != nil {
		return nil, err
	}
	m := make([][]float64, len(p.features))
	for f, d := range p.features {
		m[f] = d.row()
	}
	if err := plugin.SetMatrix(env, "dynamics", m); err != nil {
		return nil, err
	}
	if err := plugin.SetVector(env, "lengths", p.lengths); err != nil {
		return nil, err
	}
	if p.nested != nil {
		if err := plugin.SetNested(env, generatorPrefix, p.nested); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// Restore implements plugin.Plugin.
func (p *Autoregressive) Restore(env *serialization.Envelope) error {
	if err := p.RestoreBase(env); err != nil {
		return err
	}
	if err := env.Get("layout", &p.layout); err != nil {
		return err
	}
	if err := env.Get("timing", &p.timing); err != nil {
		return err
	}
	m, err := plugin.Matrix(env, "dynamics")
	if err != nil {
		return err
	}
	if p.Fitted() {
		if err := plugin.CheckLen("dynamics", len(m), len(p.layout.Temporal)); err != nil {
			return err
		}
	}
	p.features = make([]dynamics, len(m))
	for f, r := range m {
		if p.features[f], err = dynamicsFromRow(r); err != nil {
			return fmt.Errorf("%w: %w", plugin.ErrStateMismatch, err)
		}
	}
	if p.lengths, err = plugin.Vector(env, "lengths"); err != nil {
		return err
	}
	if p.Fitted() && len(p.lengths) == 0 {
		return fmt.Errorf("%w: no stored sequence lengths", plugin.ErrStateMismatch)
	}
	for _, l := range p.lengths {
		if _, err := plugin.Count("lengths", l); err != nil {
			return err
		}
	}
	p.nested = nil
	if env.Has(generatorPrefix + "plugin") {
		if p.nested, err = plugin.Nested(env, generatorPrefix); err != nil {
			return err
		}
	}
	if !p.Fitted() {
		return nil
	}
	side := len(p.layout.Static) + len(p.layout.Outcome)
	switch {
	case side > 0 && p.nested == nil:
		return fmt.Errorf("%w: static and outcome generator missing", plugin.ErrStateMismatch)
	case p.nested != nil:
		return plugin.CheckLen("generator columns", p.nested.Schema().Width(), side)
	}
	return nil
}
