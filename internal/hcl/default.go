package hcl

import _ "embed"

const defaultSweepName = "default.hcl"

// defaultSweep is the benchmark sweep used when no sweep file is given.
//
//go:embed default.hcl
var defaultSweep []byte
