package plugin

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/logging"
	"github.com/born-ml/synth/internal/serialization"
	"github.com/born-ml/synth/internal/version"
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys written by Base.Snapshot.
const (
	keyParams = "params"
	keyFitted = "fitted"
	keySchema = "schema"
	keyLoader = "loader"
)

// LoaderInfo records the shape of the data a plugin was fitted on so that
// generated tables come back in the same kind of container.
type LoaderInfo struct {
	Type        dataloader.LoaderType `msgpack:"type"`
	Target      string                `msgpack:"target,omitempty"`
	TimeToEvent string                `msgpack:"time_to_event,omitempty"`
}

func describeLoader(data dataloader.DataLoader) LoaderInfo {
	info := LoaderInfo{Type: data.Type()}
	switch l := data.(type) {
	case *dataloader.GenericDataLoader:
		info.Target = l.Target()
	case *dataloader.SurvivalAnalysisDataLoader:
		info.Target = l.TargetColumn()
		info.TimeToEvent = l.TimeToEventColumn()
	}
	return info
}

// TabularData lists the loader types whose Frame is a plain table.
var TabularData = []dataloader.LoaderType{dataloader.Generic, dataloader.SurvivalAnalysis}

// Base holds the state shared by every plugin. Embed it and call NewBase
// from the constructor.
type Base struct {
	name     string
	category Category
	version  string
	params   Params
	fitted   bool
	schema   *Schema
	loader   LoaderInfo
	rng      *rand.Rand
}

// NewBase initialises the shared state. A negative random_state seeds the
// generator randomly.
func NewBase(name string, category Category, params Params) Base {
	b := Base{
		name:     name,
		category: category,
		version:  version.MajorVersion(),
		params:   params.Clone(),
	}
	b.rng = newRand(b.Seed())
	return b
}

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // User requested random seed
	}
	return rand.New(rand.NewSource(seed)) //nolint:gosec // Intentional deterministic seed for reproducibility
}

// Name implements Plugin.
func (b *Base) Name() string { return b.name }

// Category implements Plugin.
func (b *Base) Category() Category { return b.category }

// Version implements Plugin.
func (b *Base) Version() string { return b.version }

// Params implements Plugin. The returned map is a copy.
func (b *Base) Params() Params { return b.params.Clone() }

// Fitted implements Plugin.
func (b *Base) Fitted() bool { return b.fitted }

// Schema implements Plugin.
func (b *Base) Schema() *Schema { return b.schema }

// Loader returns the description of the training data.
func (b *Base) Loader() LoaderInfo { return b.loader }

// Wrap puts a generated table into the same kind of container the plugin
// was fitted on.
func (b *Base) Wrap(frame *dataloader.Frame) (dataloader.DataLoader, error) {
	switch b.loader.Type {
	case dataloader.SurvivalAnalysis:
		return dataloader.NewSurvivalAnalysis(frame, b.loader.Target, b.loader.TimeToEvent)
	default:
		target := b.loader.Target
		if frame.ColumnIndex(target) < 0 {
			target = ""
		}
		return dataloader.NewGeneric(frame, target)
	}
}

// Strict reports whether Generate fails when constraints cannot be met.
func (b *Base) Strict() bool {
	if _, ok := b.params[ParamStrict]; !ok {
		return true
	}
	return b.params.Bool(ParamStrict)
}

// Seed returns the random_state parameter.
func (b *Base) Seed() int64 { return b.params.Int64(ParamRandomState) }

// SamplingPatience returns the maximum number of sampling rounds.
func (b *Base) SamplingPatience() int {
	if n := b.params.Int(ParamSamplingPatience); n > 0 {
		return n
	}
	return DefaultSamplingPatience
}

// NestedParams returns the shared parameters a child generator inherits.
func (b *Base) NestedParams() map[string]any {
	return map[string]any{
		ParamRandomState:      b.Seed(),
		ParamStrict:           b.Strict(),
		ParamSamplingPatience: b.SamplingPatience(),
	}
}

// Rand returns the plugin's random source.
func (b *Base) Rand() *rand.Rand { return b.rng }

// Snapshot returns an envelope holding the shared state.
func (b *Base) Snapshot() (*serialization.Envelope, error) {
	env := serialization.NewEnvelope(b.name, string(b.category))
	if err := env.Set(keyParams, map[string]any(b.params)); err != nil {
		return nil, err
	}
	if err := env.Set(keyFitted, b.fitted); err != nil {
		return nil, err
	}
	schema := Schema{}
	if b.schema != nil {
		schema = *b.schema
	}
	if err := env.Set(keySchema, schema); err != nil {
		return nil, err
	}
	if err := env.Set(keyLoader, b.loader); err != nil {
		return nil, err
	}
	return env, nil
}

// RestoreBase loads the shared state from env. The random source restarts
// from the seed.
func (b *Base) RestoreBase(env *serialization.Envelope) error {
	if env.Plugin != b.name {
		return fmt.Errorf("%w: state of %q cannot restore %q", ErrStateMismatch, env.Plugin, b.name)
	}
	var fitted bool
	if err := env.Get(keyFitted, &fitted); err != nil {
		return err
	}
	var schema Schema
	if err := env.Get(keySchema, &schema); err != nil {
		return err
	}
	var loader LoaderInfo
	if err := env.Get(keyLoader, &loader); err != nil {
		return err
	}
	b.fitted = fitted
	b.loader = loader
	b.schema = nil
	if fitted {
		b.schema = &schema
	}
	if env.Version != "" {
		b.version = env.Version
	}
	b.rng = newRand(b.Seed())
	return nil
}

// FitFunc learns plugin-specific state from validated data.
type FitFunc func(ctx context.Context, data dataloader.DataLoader) error

// RunFit checks that data is one of the accepted loader types, records the
// training schema and calls fit. The plugin is marked fitted only when fit
// succeeds.
func (b *Base) RunFit(ctx context.Context, data dataloader.DataLoader, accept []dataloader.LoaderType, fit FitFunc) (err error) {
	ctx, span := tracer().Start(ctx, "plugin.Fit", pluginAttrs(b.name, b.category))
	defer func() { endSpan(span, err) }()

	if data == nil {
		return fmt.Errorf("%w: nil data", ErrUnsupportedData)
	}
	if !slices.Contains(accept, data.Type()) {
		return fmt.Errorf("%w: %s does not accept %s data", ErrUnsupportedData, b.name, data.Type())
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if data.Len() == 0 {
		return fmt.Errorf("%w: no samples", dataloader.ErrInvalidData)
	}
	if len(data.Columns()) == 0 {
		return fmt.Errorf("%w: no columns", dataloader.ErrInvalidData)
	}
	span.SetAttributes(attribute.Int("data.len", data.Len()))

	log := logging.FromContext(ctx).With("plugin", b.name)
	log.DebugContext(ctx, "fitting plugin", "samples", data.Len(), "columns", len(data.Columns()))
	start := time.Now()

	b.fitted = false
	b.schema = InferSchema(data.Frame())
	b.loader = describeLoader(data)
	if err := fit(ctx, data); err != nil {
		b.schema = nil
		b.loader = LoaderInfo{}
		return err
	}
	b.fitted = true

	log.DebugContext(ctx, "plugin fitted", "elapsed", time.Since(start))
	return nil
}

// GenerateFunc produces output for one Generate call.
type GenerateFunc func(ctx context.Context, cfg GenerateConfig, rng *rand.Rand) error

// RunGenerateFunc checks that the plugin is fitted and count is positive,
// then calls gen with the per-call config and random source.
func (b *Base) RunGenerateFunc(ctx context.Context, count int, opts []GenerateOption, gen GenerateFunc) (err error) {
	ctx, span := tracer().Start(ctx, "plugin.Generate", pluginAttrs(b.name, b.category))
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("generate.count", count))

	if !b.fitted {
		return fmt.Errorf("%w: %s", ErrNotFitted, b.name)
	}
	if count <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}
	cfg := NewGenerateConfig(opts...)
	rng := b.rng
	if cfg.Seed != nil {
		rng = newRand(*cfg.Seed)
	}
	logging.FromContext(ctx).DebugContext(ctx, "generating", "plugin", b.name, "count", count, "constraints", len(cfg.Constraints.Rules))
	return gen(ctx, cfg, rng)
}

// SampleFunc draws n candidate rows in training column order.
type SampleFunc func(rng *rand.Rand, n int) (*dataloader.Frame, error)

// RunGenerate draws rows from sample until count rows fall inside the
// training domain and satisfy the requested constraints, for at most
// SamplingPatience rounds. In strict mode a shortfall returns
// ErrConstraintsUnsatisfied; otherwise the rows found so far are returned.
func (b *Base) RunGenerate(ctx context.Context, count int, opts []GenerateOption, sample SampleFunc) (*dataloader.Frame, error) {
	var out *dataloader.Frame
	err := b.RunGenerateFunc(ctx, count, opts, func(ctx context.Context, cfg GenerateConfig, rng *rand.Rand) error {
		filter := b.schema.AsConstraints().And(cfg.Constraints)
		out = &dataloader.Frame{Columns: b.schema.Names()}

		patience := b.SamplingPatience()
		rounds := 0
		for ; rounds < patience && out.Len() < count; rounds++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch, err := sample(rng, count-out.Len())
			if err != nil {
				return err
			}
			b.schema.Adapt(batch)
			valid, err := filter.Match(batch)
			if err != nil {
				return err
			}
			out.Rows = append(out.Rows, valid.Rows...)
		}

		if out.Len() < count {
			if b.Strict() {
				return fmt.Errorf("%w: %d of %d rows after %d rounds", ErrConstraintsUnsatisfied, out.Len(), count, rounds)
			}
			logging.FromContext(ctx).WarnContext(ctx, "returning fewer rows than requested",
				"plugin", b.name, "requested", count, "generated", out.Len(), "rounds", rounds)
			return nil
		}
		out.Rows = out.Rows[:count]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
