package survival

import (
	"context"
	"fmt"
	"math/rand"
	"slices"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/serialization"
	"github.com/born-ml/synth/internal/stats"
)

// KaplanMeierName is the registered name of KaplanMeier.
const KaplanMeierName = "survival_km"

const generatorPrefix = "generator."

// KaplanMeier draws an event indicator at the training event rate, then a
// time from the Kaplan-Meier estimate of event times (for events) or of
// censoring times (for censored rows). Covariates come from a nested tabular
// generator, independent of the outcome.
type KaplanMeier struct {
	plugin.Base
	eventRate float64
	events    stats.KaplanMeier
	censoring stats.KaplanMeier
	maxTime   float64
	nested    plugin.Plugin
}

// NewKaplanMeier constructs an unfitted generator.
func NewKaplanMeier(params plugin.Params) (plugin.Plugin, error) {
	return &KaplanMeier{Base: plugin.NewBase(KaplanMeierName, plugin.SurvivalAnalysis, params)}, nil
}

// Fit implements plugin.Plugin.
func (p *KaplanMeier) Fit(ctx context.Context, data dataloader.DataLoader) error {
	return p.RunFit(ctx, data, []dataloader.LoaderType{dataloader.SurvivalAnalysis}, func(ctx context.Context, data dataloader.DataLoader) error {
		sl, ok := data.(*dataloader.SurvivalAnalysisDataLoader)
		if !ok {
			return fmt.Errorf("%w: expected *dataloader.SurvivalAnalysisDataLoader, got %T", plugin.ErrUnsupportedData, data)
		}
		events, times := sl.Events(), sl.Times()
		censored := make([]float64, len(events))
		observed := 0.0
		for i, e := range events {
			censored[i] = 1 - e
			observed += e
		}
		p.eventRate = observed / float64(len(events))
		p.events = stats.NewKaplanMeier(times, events)
		p.censoring = stats.NewKaplanMeier(times, censored)
		_, p.maxTime = stats.MinMax(times)

		p.nested = nil
		covariates := sl.Covariates()
		if covariates.Width() == 0 {
			return nil
		}
		child, err := plugin.New(p.Params().String("generator"), p.NestedParams())
		if err != nil {
			return err
		}
		loader, err := dataloader.NewGeneric(covariates, "")
		if err != nil {
			return err
		}
		if err := child.Fit(ctx, loader); err != nil {
			return fmt.Errorf("covariate generator: %w", err)
		}
		p.nested = child
		return nil
	})
}

// outcome draws one event indicator and time.
func (p *KaplanMeier) outcome(rng *rand.Rand) (event, t float64) {
	if rng.Float64() < p.eventRate {
		if v, ok := p.events.SampleObserved(rng); ok {
			return 1, v
		}
	} else if v, ok := p.censoring.SampleObserved(rng); ok {
		return 0, v
	}
	return 0, p.maxTime
}

// Generate implements plugin.Plugin.
func (p *KaplanMeier) Generate(ctx context.Context, count int, opts ...plugin.GenerateOption) (dataloader.DataLoader, error) {
	info := p.Loader()
	frame, err := p.RunGenerate(ctx, count, opts, func(rng *rand.Rand, n int) (*dataloader.Frame, error) {
		columns := p.Schema().Names()
		out := &dataloader.Frame{Columns: columns, Rows: make([][]float64, n)}

		var covariates *dataloader.Frame
		if p.nested != nil {
			gen, err := p.nested.Generate(ctx, n, plugin.WithSeed(rng.Int63()))
			if err != nil {
				return nil, fmt.Errorf("covariate generator: %w", err)
			}
			covariates = gen.Frame()
		}
		eventCol := out.ColumnIndex(info.Target)
		timeCol := out.ColumnIndex(info.TimeToEvent)
		for i := range out.Rows {
			row := make([]float64, len(columns))
			if covariates != nil && i < covariates.Len() {
				for j, name := range covariates.Columns {
					row[out.ColumnIndex(name)] = covariates.Rows[i][j]
				}
			}
			row[eventCol], row[timeCol] = p.outcome(rng)
			out.Rows[i] = row
		}
		if covariates != nil && covariates.Len() < n {
			out.Rows = out.Rows[:covariates.Len()]
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return p.Wrap(frame)
}

// Save implements plugin.Plugin.
func (p *KaplanMeier) Save() ([]byte, error) { return plugin.Save(p) }

// State implements plugin.Plugin.
func (p *KaplanMeier) State() (*serialization.Envelope, error) {
	env, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := env.Set("event_rate", p.eventRate); err != nil {
		return nil, err
	}
	if err := env.Set("max_time", p.maxTime); err != nil {
		return nil, err
	}
	if err := setCurve(env, "km.events", p.events); err != nil {
		return nil, err
	}
	if err := setCurve(env, "km.censoring", p.censoring); err != nil {
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
func (p *KaplanMeier) Restore(env *serialization.Envelope) error {
	if err := p.RestoreBase(env); err != nil {
		return err
	}
	if err := env.Get("event_rate", &p.eventRate); err != nil {
		return err
	}
	if err := env.Get("max_time", &p.maxTime); err != nil {
		return err
	}
	var err error
	if p.events, err = curve(env, "km.events"); err != nil {
		return err
	}
	if p.censoring, err = curve(env, "km.censoring"); err != nil {
		return err
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
	columns := p.Schema().Names()
	required := []string{p.Loader().Target, p.Loader().TimeToEvent}
	if p.nested != nil {
		required = append(required, p.nested.Schema().Names()...)
	}
	for _, name := range required {
		if !slices.Contains(columns, name) {
			return fmt.Errorf("%w: column %q is not in the schema", plugin.ErrStateMismatch, name)
		}
	}
	return nil
}

func setCurve(env *serialization.Envelope, key string, km stats.KaplanMeier) error {
	if err := plugin.SetVector(env, key+".times", km.Times); err != nil {
		return err
	}
	return plugin.SetVector(env, key+".survival", km.Survival)
}

func curve(env *serialization.Envelope, key string) (stats.KaplanMeier, error) {
	times, err := plugin.Vector(env, key+".times")
	if err != nil {
		return stats.KaplanMeier{}, err
	}
	survival, err := plugin.Vector(env, key+".survival")
	if err != nil {
		return stats.KaplanMeier{}, err
	}
	if err := plugin.CheckLen(key+".survival", len(survival), len(times)); err != nil {
		return stats.KaplanMeier{}, err
	}
	return stats.KaplanMeier{Times: times, Survival: survival}, nil
}
