// Package survival registers the survival-analysis generator survival_km.
package survival

import (
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/plugins/generic"
)

func init() {
	plugin.Register(plugin.Definition{
		Name:        KaplanMeierName,
		Category:    plugin.SurvivalAnalysis,
		Description: "Kaplan-Meier event and censoring times with covariates from a nested generator",
		Space: plugin.Space{
			plugin.ChoiceParam("generator", generic.MarginalDistributionsName, generic.Names()...),
		},
		New: NewKaplanMeier,
	})
}
