package plugin

import (
	"context"
	"fmt"

	"github.com/born-ml/synth/internal/logging"
	"github.com/born-ml/synth/internal/serialization"
	"github.com/born-ml/synth/internal/version"
	"go.opentelemetry.io/otel/attribute"
)

// Save encodes the plugin's state into the binary container.
func Save(p Plugin) ([]byte, error) {
	return SaveContext(context.Background(), p)
}

// SaveContext is Save with a context for tracing and logging.
func SaveContext(ctx context.Context, p Plugin) (data []byte, err error) {
	ctx, span := tracer().Start(ctx, "plugin.Save", pluginAttrs(p.Name(), p.Category()))
	defer func() { endSpan(span, err) }()

	env, err := p.State()
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", p.Name(), err)
	}
	env.Version = version.MajorVersion()
	data, err = serialization.Save(env)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", p.Name(), err)
	}
	span.SetAttributes(attribute.Int("bytes", len(data)))
	logging.FromContext(ctx).DebugContext(ctx, "plugin saved", "plugin", p.Name(), "bytes", len(data))
	return data, nil
}

// Load decodes a plugin saved by Save. The saved library version must match
// the running one and the plugin must be registered.
func Load(data []byte) (Plugin, error) {
	return LoadContext(context.Background(), data)
}

// LoadContext is Load with a context for tracing and logging.
func LoadContext(ctx context.Context, data []byte) (p Plugin, err error) {
	ctx, span := tracer().Start(ctx, "plugin.Load")
	defer func() { endSpan(span, err) }()

	env, err := serialization.Load(data)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("plugin.name", env.Plugin),
		attribute.String("plugin.category", env.Category),
	)
	p, err = FromEnvelope(env)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).DebugContext(ctx, "plugin loaded", "plugin", env.Plugin, "version", env.Version)
	return p, nil
}

// FromEnvelope rebuilds a plugin from decoded state.
func FromEnvelope(env *serialization.Envelope) (Plugin, error) {
	if err := serialization.CheckVersion(env); err != nil {
		return nil, err
	}
	def, ok := Lookup(env.Plugin)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, env.Plugin)
	}
	if string(def.Category) != env.Category {
		return nil, fmt.Errorf("%w: %q is registered as %s, saved as %s", ErrStateMismatch, env.Plugin, def.Category, env.Category)
	}
	var raw map[string]any
	if env.Has(keyParams) {
		if err := env.Get(keyParams, &raw); err != nil {
			return nil, err
		}
	}
	p, err := def.Instantiate(raw)
	if err != nil {
		return nil, err
	}
	if err := p.Restore(env); err != nil {
		return nil, fmt.Errorf("restore %s: %w", env.Plugin, err)
	}
	return p, nil
}
