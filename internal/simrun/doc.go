// Package simrun is the engine-side half of the invocation contract. It
// parses the argument list a sweep passes to one simulation, assigns person
// attributes and installs the valuation hooks into the dispatch solver.
//
// The sweep runs Check on every invocation before launching anything.
// Configure is the entry point for an engine embedding this module; the
// engine owns the population and the solver, so nothing in this repository
// calls it outside tests.
package simrun
