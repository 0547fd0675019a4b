// Package plugins is a category-filtered view of the plugin catalog.
//
// Importing this package does not register any generator; import
// internal/plugins/all (or an individual category package) for side effects.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/born-ml/synth/internal/plugin"
)

// ErrNotFound is returned for plugins that are not registered or fall outside
// the view's categories.
var ErrNotFound = errors.New("plugins: plugin not found")

// Plugins lists and instantiates registered plugins of selected categories.
type Plugins struct {
	categories []plugin.Category
}

// Option configures a view.
type Option func(*Plugins)

// WithCategories restricts the view to cats. Unknown categories are ignored.
func WithCategories(cats ...plugin.Category) Option {
	return func(p *Plugins) {
		p.categories = p.categories[:0]
		for _, c := range plugin.Categories() {
			if slices.Contains(cats, c) {
				p.categories = append(p.categories, c)
			}
		}
	}
}

// New creates a view over every category unless WithCategories is given.
func New(opts ...Option) *Plugins {
	p := &Plugins{categories: plugin.Categories()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Categories returns the categories visible through the view.
func (p *Plugins) Categories() []plugin.Category {
	return append([]plugin.Category(nil), p.categories...)
}

func (p *Plugins) visible(cat plugin.Category) bool {
	return slices.Contains(p.categories, cat)
}

// Definitions returns the visible definitions sorted by name.
func (p *Plugins) Definitions() []plugin.Definition {
	var out []plugin.Definition
	for _, def := range plugin.Definitions() {
		if p.visible(def.Category) {
			out = append(out, def)
		}
	}
	return out
}

// List returns the visible plugin names, sorted.
func (p *Plugins) List() []string {
	defs := p.Definitions()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// Definition returns the visible definition named name.
func (p *Plugins) Definition(name string) (plugin.Definition, error) {
	def, ok := plugin.Lookup(name)
	if !ok || !p.visible(def.Category) {
		return plugin.Definition{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return def, nil
}

// Space returns the parameters accepted by the named plugin.
func (p *Plugins) Space(name string) (plugin.Space, error) {
	def, err := p.Definition(name)
	if err != nil {
		return nil, err
	}
	return def.FullSpace(), nil
}

// GetOption configures Get.
type GetOption func(map[string]any)

// WithParams sets hyperparameters by name.
func WithParams(params map[string]any) GetOption {
	return func(m map[string]any) {
		for k, v := range params {
			m[k] = v
		}
	}
}

// WithParam sets a single hyperparameter.
func WithParam(name string, value any) GetOption {
	return func(m map[string]any) { m[name] = value }
}

// WithStrict sets the strict parameter.
func WithStrict(strict bool) GetOption {
	return WithParam(plugin.ParamStrict, strict)
}

// WithSeed sets the random_state parameter.
func WithSeed(seed int64) GetOption {
	return WithParam(plugin.ParamRandomState, seed)
}

// Get instantiates the named plugin. Parameters the plugin does not declare
// return plugin.ErrUnknownParam.
func (p *Plugins) Get(name string, opts ...GetOption) (plugin.Plugin, error) {
	def, err := p.Definition(name)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]any)
	for _, opt := range opts {
		opt(raw)
	}
	return def.Instantiate(raw)
}

// Load decodes a saved plugin and checks that it belongs to the view.
func (p *Plugins) Load(data []byte) (plugin.Plugin, error) {
	return p.LoadContext(context.Background(), data)
}

// LoadContext is Load with a context for tracing and logging.
func (p *Plugins) LoadContext(ctx context.Context, data []byte) (plugin.Plugin, error) {
	loaded, err := plugin.LoadContext(ctx, data)
	if err != nil {
		return nil, err
	}
	if !p.visible(loaded.Category()) {
		return nil, fmt.Errorf("%w: %q is a %s plugin", ErrNotFound, loaded.Name(), loaded.Category())
	}
	return loaded, nil
}

// Add registers a custom plugin. It panics on duplicate names, like
// plugin.Register.
func (p *Plugins) Add(def plugin.Definition) *Plugins {
	plugin.Register(def)
	return p
}
