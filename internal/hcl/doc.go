// Package hcl provides the HCL implementation of config.Loader.
//
// A sweep is described by optional `engine`, `output` and `valuation`
// blocks and any number of labelled `dimension` blocks:
//
//	engine {
//	  command   = ["java", "-cp", "sim.jar", "org.example.RunSimulation"]
//	  overrides = { "config:global.numberOfThreads" = "4" }
//	}
//
//	dimension "fleet_size" {
//	  values = range(100, 500, 50)
//	}
//
// Dimension values are ordinary HCL expressions evaluated with a small set
// of functions (range, concat, distinct, flatten, min, max). The blocks may
// be spread over several files; each singleton block may only be declared
// once across all of them.
package hcl
