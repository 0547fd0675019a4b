// Package privacy registers the differentially private reference
// generators dp_histogram and dp_gaussian.
//
// Both treat the observed column ranges as public knowledge; only the
// distribution inside those ranges is protected.
package privacy

import "github.com/born-ml/synth/internal/plugin"

func init() {
	plugin.Register(plugin.Definition{
		Name:        DPHistogramName,
		Category:    plugin.Privacy,
		Description: "per-column histograms released with the Laplace mechanism",
		Space: plugin.Space{
			plugin.FloatParam("epsilon", 1, 0.01, 100),
			plugin.IntParam("n_bins", 10, 2, 1000),
		},
		New: NewDPHistogram,
	})
	plugin.Register(plugin.Definition{
		Name:        DPGaussianName,
		Category:    plugin.Privacy,
		Description: "multivariate normal with mean and covariance released with the Gaussian mechanism",
		Space: plugin.Space{
			plugin.FloatParam("epsilon", 1, 0.01, 100),
			plugin.FloatParam("delta", 1e-5, 1e-12, 0.1),
		},
		New: NewDPGaussian,
	})
}
