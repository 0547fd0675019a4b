// Package plugin defines the contract every synthetic-data generator
// implements, the process-wide catalog generators register into, and the
// object-level Save and Load that round-trip a generator through the
// versioned container of package serialization.
//
// Concrete generators embed Base for the shared state (parameters, strict
// flag, seed, training schema, fitted flag) and register a Definition from an
// init function, the same way database/sql drivers do:
//
//	func init() {
//	    plugin.Register(plugin.Definition{
//	        Name:     "uniform_sampler",
//	        Category: plugin.Generic,
//	        New:      newUniformSampler,
//	    })
//	}
//
// A Plugin value is not safe for concurrent use.
package plugin
