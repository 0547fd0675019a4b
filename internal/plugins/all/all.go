// Package all registers every builtin plugin.
package all

import (
	_ "github.com/born-ml/synth/internal/plugins/generic"    // generic tabular generators
	_ "github.com/born-ml/synth/internal/plugins/privacy"    // differentially private generators
	_ "github.com/born-ml/synth/internal/plugins/survival"   // survival-analysis generators
	_ "github.com/born-ml/synth/internal/plugins/timeseries" // time-series generators
)
