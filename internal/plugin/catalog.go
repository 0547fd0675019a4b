package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Definition describes a registered plugin.
type Definition struct {
	Name        string
	Category    Category
	Description string
	// Space lists the plugin-specific parameters. CommonSpace is added by
	// FullSpace.
	Space Space
	// New constructs the plugin from validated parameters.
	New func(params Params) (Plugin, error)
}

// FullSpace returns the common parameters followed by the plugin's own.
func (d Definition) FullSpace() Space {
	out := CommonSpace()
	return append(out, d.Space...)
}

// Instantiate validates raw against FullSpace and constructs the plugin.
func (d Definition) Instantiate(raw map[string]any) (Plugin, error) {
	params, err := d.FullSpace().Validate(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}
	return d.New(params)
}

var (
	catalogMu sync.RWMutex
	catalog   = make(map[string]Definition)
)

// Register makes a plugin available by name. It panics if the name is empty
// or already registered, if New is nil, or if the category is unknown.
func Register(def Definition) {
	catalogMu.Lock()
	defer catalogMu.Unlock()

	if def.Name == "" {
		panic("plugin: Register with empty name")
	}
	if def.New == nil {
		panic("plugin: Register " + def.Name + " with nil constructor")
	}
	if _, err := ParseCategory(string(def.Category)); err != nil {
		panic("plugin: Register " + def.Name + ": " + err.Error())
	}
	if _, dup := catalog[def.Name]; dup {
		panic("plugin: Register called twice for " + def.Name)
	}
	for _, spec := range def.Space {
		if _, clash := CommonSpace().Lookup(spec.Name); clash {
			panic("plugin: Register " + def.Name + " redefines common parameter " + spec.Name)
		}
	}
	catalog[def.Name] = def
}

// Lookup returns the definition registered under name.
func Lookup(name string) (Definition, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	def, ok := catalog[name]
	return def, ok
}

// Definitions returns every registered definition sorted by name.
func Definitions() []Definition {
	catalogMu.RLock()
	defs := make([]Definition, 0, len(catalog))
	for _, def := range catalog {
		defs = append(defs, def)
	}
	catalogMu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// New constructs the plugin registered under name.
func New(name string, raw map[string]any) (Plugin, error) {
	def, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, name)
	}
	return def.Instantiate(raw)
}
