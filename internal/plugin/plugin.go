package plugin

import (
	"context"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/serialization"
)

// Plugin is a synthetic-data generator.
//
// Fit learns from a data loader, Generate draws new samples of the same
// kind. State and Restore convert the plugin to and from an Envelope; Save is
// shorthand for encoding State with the package-level Save.
type Plugin interface {
	Name() string
	Category() Category
	// Version returns the major.minor library version the plugin state was
	// produced by.
	Version() string
	Params() Params
	Fitted() bool
	// Schema returns the training domain, or nil before Fit.
	Schema() *Schema

	Fit(ctx context.Context, data dataloader.DataLoader) error
	Generate(ctx context.Context, count int, opts ...GenerateOption) (dataloader.DataLoader, error)

	Save() ([]byte, error)
	State() (*serialization.Envelope, error)
	Restore(env *serialization.Envelope) error
}

// GenerateConfig collects per-call generation options.
type GenerateConfig struct {
	Constraints Constraints
	Seed        *int64
}

// GenerateOption configures a Generate call.
type GenerateOption func(*GenerateConfig)

// WithConstraints restricts generated rows to those satisfying c.
func WithConstraints(c Constraints) GenerateOption {
	return func(cfg *GenerateConfig) {
		cfg.Constraints = cfg.Constraints.And(c)
	}
}

// WithSeed makes a single Generate call reproducible regardless of earlier
// calls on the same plugin.
func WithSeed(seed int64) GenerateOption {
	return func(cfg *GenerateConfig) {
		cfg.Seed = &seed
	}
}

// NewGenerateConfig applies opts to an empty config.
func NewGenerateConfig(opts ...GenerateOption) GenerateConfig {
	var cfg GenerateConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
