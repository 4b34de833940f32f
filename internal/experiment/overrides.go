// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package experiment

// Rule is a single override applied to a raw combination. Every rule must be
// idempotent.
type Rule struct {
	Name  string
	Apply func(p *Params)
}

// Rules are applied in order by ApplyOverrides.
var Rules = []Rule{
	{
		// Alonso-Mora assigns continuously, so the dispatch interval is pinned.
		Name: "pin-dispatch-interval-under-alonso-mora",
		Apply: func(p *Params) {
			if p.UseAlonsoMora {
				p.DispatchInterval = 1
			}
		},
	},
	{
		Name: "passenger-delay-objective-requires-insertion-heuristic",
		Apply: func(p *Params) {
			if p.UseAlonsoMora {
				p.MinimizePassengerDelay = false
			}
		},
	},
	{
		Name: "inclusive-penalty-requires-alonso-mora",
		Apply: func(p *Params) {
			if !p.UseAlonsoMora {
				p.InclusivePenalty = false
			}
		},
	},
	{
		Name: "no-vulnerable-prebooking-without-vulnerable-users",
		Apply: func(p *Params) {
			if p.VulnerableProbability <= 0 {
				p.PrebookVulnerable = false
			}
		},
	},
	{
		// Prebooking is either tied to vulnerability or drawn independently.
		Name: "prebooking-modes-are-exclusive",
		Apply: func(p *Params) {
			if p.PrebookVulnerable {
				p.PrebookingShare = 0
			}
		},
	},
}

// ApplyOverrides returns p with every rule applied.
func ApplyOverrides(p Params) Params {
	for _, r := range Rules {
		r.Apply(&p)
	}
	return p
}

// Canonical returns the effective parameters with every field that does not
// influence the experiment zeroed. Two parameter sets describe the same
// experiment exactly when their canonical forms are equal.
func Canonical(p Params) Params {
	p = ApplyOverrides(p)
	if p.VulnerableProbability <= 0 {
		p.VulnerableTime = 0
	}
	if p.UseAlonsoMora {
		p.DispatchInterval = 0
	}
	if !p.InclusivePenalty {
		p.WeightAlpha = 0
	}
	return p
}
