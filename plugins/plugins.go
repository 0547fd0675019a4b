// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package plugins

import (
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/plugins"
	_ "github.com/born-ml/synth/internal/plugins/all" // register builtin generators
	"github.com/born-ml/synth/internal/serialization"
)

// Plugin is a synthetic-data generator.
type Plugin = plugin.Plugin

// Definition describes a registered generator.
type Definition = plugin.Definition

// Params holds validated hyperparameters.
type Params = plugin.Params

// Space is the set of hyperparameters a generator accepts.
type Space = plugin.Space

// ParamSpec describes one hyperparameter.
type ParamSpec = plugin.ParamSpec

// Base holds the state shared by every generator. Embed it in custom plugins.
type Base = plugin.Base

// Category groups generators by the kind of data they model.
type Category = plugin.Category

// Supported categories.
const (
	Generic          Category = plugin.Generic
	Privacy          Category = plugin.Privacy
	TimeSeries       Category = plugin.TimeSeries
	SurvivalAnalysis Category = plugin.SurvivalAnalysis
)

// TabularData lists the loader types plain-table generators accept in
// Base.RunFit.
var TabularData = plugin.TabularData

// Constraints restrict generated rows.
type Constraints = plugin.Constraints

// Rule restricts one column.
type Rule = plugin.Rule

// GenerateOption configures a Generate call.
type GenerateOption = plugin.GenerateOption

// Plugins is a category-filtered view of the registered generators.
type Plugins = plugins.Plugins

// Option configures a view.
type Option = plugins.Option

// GetOption configures Plugins.Get.
type GetOption = plugins.GetOption

// Errors.
var (
	ErrNotFound               = plugins.ErrNotFound
	ErrUnknownPlugin          = plugin.ErrUnknownPlugin
	ErrUnknownParam           = plugin.ErrUnknownParam
	ErrInvalidParam           = plugin.ErrInvalidParam
	ErrNotFitted              = plugin.ErrNotFitted
	ErrConstraintsUnsatisfied = plugin.ErrConstraintsUnsatisfied
	ErrStateMismatch          = plugin.ErrStateMismatch
	ErrVersionMismatch        = serialization.ErrVersionMismatch
)

// Envelope is the decoded form of a saved generator.
type Envelope = serialization.Envelope

// New creates a view over every category unless WithCategories is given.
//
// Example:
//
//	private := plugins.New(plugins.WithCategories(plugins.Privacy))
//	fmt.Println(private.List()) // [dp_gaussian dp_histogram]
func New(opts ...Option) *Plugins {
	return plugins.New(opts...)
}

// WithCategories restricts a view to the given categories.
func WithCategories(cats ...Category) Option {
	return plugins.WithCategories(cats...)
}

// WithParams sets hyperparameters by name.
func WithParams(params map[string]any) GetOption {
	return plugins.WithParams(params)
}

// WithParam sets a single hyperparameter.
func WithParam(name string, value any) GetOption {
	return plugins.WithParam(name, value)
}

// WithStrict controls whether Generate fails when it cannot produce enough
// rows that satisfy the constraints.
func WithStrict(strict bool) GetOption {
	return plugins.WithStrict(strict)
}

// WithSeed sets the random_state hyperparameter. Negative seeds are random.
func WithSeed(seed int64) GetOption {
	return plugins.WithSeed(seed)
}

// WithConstraints restricts the rows returned by Generate.
func WithConstraints(c Constraints) GenerateOption {
	return plugin.WithConstraints(c)
}

// WithGenerateSeed makes a single Generate call reproducible.
func WithGenerateSeed(seed int64) GenerateOption {
	return plugin.WithSeed(seed)
}

// ParseRule parses "column op value", for example "age >= 18".
func ParseRule(s string) (Rule, error) {
	return plugin.ParseRule(s)
}

// Save encodes a generator's state. It is equivalent to p.Save().
func Save(p Plugin) ([]byte, error) {
	return plugin.Save(p)
}

// Load decodes a generator saved by Save.
func Load(data []byte) (Plugin, error) {
	return plugin.Load(data)
}

// Register makes a custom generator available by name. It panics if the name
// is already registered.
func Register(def Definition) {
	plugin.Register(def)
}

// NewBase initialises the shared state of a custom generator.
func NewBase(name string, category Category, params Params) Base {
	return plugin.NewBase(name, category, params)
}

// DecodeEnvelope decodes saved data without the library version check, so
// that foreign or outdated files can be inspected.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	return serialization.Load(data)
}

// EncodeEnvelope encodes env as saved data.
func EncodeEnvelope(env *Envelope) ([]byte, error) {
	return serialization.Save(env)
}

// FromEnvelope rebuilds a generator from a decoded envelope, applying the
// library version check.
func FromEnvelope(env *Envelope) (Plugin, error) {
	return plugin.FromEnvelope(env)
}

// SetVector stores a float vector in env for a custom generator's State.
func SetVector(env *Envelope, key string, x []float64) error {
	return plugin.SetVector(env, key, x)
}

// Vector reads a vector stored by SetVector.
func Vector(env *Envelope, key string) ([]float64, error) {
	return plugin.Vector(env, key)
}

// SetMatrix stores a rectangular float matrix in env.
func SetMatrix(env *Envelope, key string, m [][]float64) error {
	return plugin.SetMatrix(env, key, m)
}

// Matrix reads a matrix stored by SetMatrix.
func Matrix(env *Envelope, key string) ([][]float64, error) {
	return plugin.Matrix(env, key)
}
