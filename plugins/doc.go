// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package plugins is the public entry point for synthetic-data generators.
//
// # Overview
//
// Generators are grouped by category:
//   - generic: uniform_sampler, marginal_distributions, dummy_sampler, gaussian_mixture
//   - privacy: dp_histogram, dp_gaussian
//   - time_series: ts_bootstrap, ts_autoregressive
//   - survival_analysis: survival_km
//
// Every generator can be saved before or after fitting and loaded back with
// its full state. Loading fails when the data was written by an incompatible
// library version.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/synth/dataloader"
//	    "github.com/born-ml/synth/plugins"
//	)
//
//	func main() {
//	    p, err := plugins.New().Get("gaussian_mixture", plugins.WithSeed(0))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := p.Fit(ctx, data); err != nil {
//	        log.Fatal(err)
//	    }
//	    synthetic, err := p.Generate(ctx, 1000)
//
//	    buf, err := p.Save()
//	    restored, err := plugins.Load(buf)
//	}
package plugins
