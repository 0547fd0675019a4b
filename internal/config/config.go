// Package config loads synth configuration from a YAML file and SYNTH_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the top-level configuration.
type Config struct {
	LogLevel         string `mapstructure:"log_level" yaml:"log_level" env:"LOG_LEVEL"`
	LogFile          string `mapstructure:"log_file" yaml:"log_file" env:"LOG_FILE"`
	Seed             int64  `mapstructure:"seed" yaml:"seed" env:"SEED"`
	Strict           bool   `mapstructure:"strict" yaml:"strict" env:"STRICT"`
	SamplingPatience int    `mapstructure:"sampling_patience" yaml:"sampling_patience" env:"SAMPLING_PATIENCE"`
	OTLPEndpoint     string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	Store            Store  `mapstructure:"store" yaml:"store" envPrefix:"STORE_"`
}

// Store selects and configures the model store backend.
type Store struct {
	Backend string `mapstructure:"backend" yaml:"backend" env:"BACKEND"`
	Root    string `mapstructure:"root" yaml:"root" env:"ROOT"` // fs backend directory
	Path    string `mapstructure:"path" yaml:"path" env:"PATH"` // sqlite database file
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:         "info",
		Seed:             0,
		Strict:           true,
		SamplingPatience: 500,
		Store: Store{
			Backend: BackendFS,
			Root:    "synth-models",
			Path:    "synth.db",
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies SYNTH_*
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv overlays SYNTH_* environment variables onto target.
func ParseEnv(target *Config) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: "SYNTH_"}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch strings.ToLower(c.Store.Backend) {
	case BackendMemory:
	case BackendFS:
		if c.Store.Root == "" {
			return fmt.Errorf("%w: store.root is required for the fs backend", ErrInvalidConfig)
		}
	case BackendSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path is required for the sqlite backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if c.SamplingPatience <= 0 {
		return fmt.Errorf("%w: sampling_patience must be positive", ErrInvalidConfig)
	}
	return nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("seed", cfg.Seed)
	v.SetDefault("strict", cfg.Strict)
	v.SetDefault("sampling_patience", cfg.SamplingPatience)
	v.SetDefault("otlp_endpoint", cfg.OTLPEndpoint)
	v.SetDefault("store.backend", cfg.Store.Backend)
	v.SetDefault("store.root", cfg.Store.Root)
	v.SetDefault("store.path", cfg.Store.Path)
}
