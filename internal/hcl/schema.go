package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a sweep file may contain. Anything
// else in the file is rejected by gohcl.
type fileRoot struct {
	Engine     *engineBlock      `hcl:"engine,block"`
	Output     *outputBlock      `hcl:"output,block"`
	Valuation  *valuationBlock   `hcl:"valuation,block"`
	Dimensions []*dimensionBlock `hcl:"dimension,block"`
}

type engineBlock struct {
	Command   []string          `hcl:"command,optional"`
	Overrides map[string]string `hcl:"overrides,optional"`
}

type outputBlock struct {
	CompletionMarker *string `hcl:"completion_marker,optional"`
	Artifact         *string `hcl:"artifact,optional"`
}

type valuationBlock struct {
	DropoffMode         *string  `hcl:"dropoff_mode,optional"`
	UnassignmentPenalty *float64 `hcl:"unassignment_penalty,optional"`
	RejectionPenalty    *float64 `hcl:"rejection_penalty,optional"`
	FairCosts           *bool    `hcl:"fair_costs,optional"`
}

type dimensionBlock struct {
	Name   string         `hcl:"name,label"`
	Values hcl.Expression `hcl:"values"`
}
