// Package generic registers the tabular reference generators:
// uniform_sampler, marginal_distributions, dummy_sampler and
// gaussian_mixture.
package generic

import "github.com/born-ml/synth/internal/plugin"

func init() {
	plugin.Register(plugin.Definition{
		Name:        UniformSamplerName,
		Category:    plugin.Generic,
		Description: "independent uniform draws inside each column's range",
		New:         NewUniformSampler,
	})
	plugin.Register(plugin.Definition{
		Name:        MarginalDistributionsName,
		Category:    plugin.Generic,
		Description: "independent draws from per-column histograms",
		Space:       plugin.Space{plugin.IntParam("n_bins", 10, 2, 1000)},
		New:         NewMarginalDistributions,
	})
	plugin.Register(plugin.Definition{
		Name:        DummySamplerName,
		Category:    plugin.Generic,
		Description: "resamples training rows with replacement",
		New:         NewDummySampler,
	})
	plugin.Register(plugin.Definition{
		Name:        GaussianMixtureName,
		Category:    plugin.Generic,
		Description: "diagonal Gaussian mixture fitted by expectation maximisation",
		Space: plugin.Space{
			plugin.IntParam("n_components", 3, 1, 50),
			plugin.IntParam("n_iter", 100, 1, 10000),
		},
		New: NewGaussianMixture,
	})
}

// Names returns the generators this package registers, for use as nested
// samplers by other categories.
func Names() []string {
	return []string{DummySamplerName, GaussianMixtureName, MarginalDistributionsName, UniformSamplerName}
}
