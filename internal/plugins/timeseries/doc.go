// Package timeseries registers the sequence generators ts_bootstrap and
// ts_autoregressive.
package timeseries

import (
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/plugins/generic"
)

func init() {
	plugin.Register(plugin.Definition{
		Name:        BootstrapName,
		Category:    plugin.TimeSeries,
		Description: "resamples whole training sequences and jitters their values",
		Space:       plugin.Space{plugin.FloatParam("noise", 0.05, 0, 10)},
		New:         NewBootstrap,
	})
	plugin.Register(plugin.Definition{
		Name:        AutoregressiveName,
		Category:    plugin.TimeSeries,
		Description: "per-feature AR(1) dynamics with a nested sampler for static and outcome columns",
		Space: plugin.Space{
			plugin.ChoiceParam("generator", generic.MarginalDistributionsName, generic.Names()...),
		},
		New: NewAutoregressive,
	})
}
