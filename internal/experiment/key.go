// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package experiment

import (
	"math"
	"strconv"
	"strings"
)

// notApplicable marks a key field that has no effect on the experiment.
const notApplicable = "x"

// Key builds the experiment key from the effective parameters, e.g.
//
//	fs100_vs0.2_vt240_am_dix_pvfalse_ps0.0_pwf300.0
//
// The layout is stable across releases so that output directories from
// earlier sweeps are recognized as completed.
func Key(p Params) string {
	p = ApplyOverrides(p)
	vulnerable := p.VulnerableProbability > 0

	var b strings.Builder
	b.WriteString("fs")
	b.WriteString(strconv.Itoa(p.FleetSize))
	b.WriteString("_vs")
	b.WriteString(formatFloat(p.VulnerableProbability))
	b.WriteString("_vt")
	if vulnerable {
		b.WriteString(strconv.Itoa(p.VulnerableTime))
	} else {
		b.WriteString(notApplicable)
	}

	switch {
	case p.UseAlonsoMora:
		b.WriteString("_am")
	case p.MinimizePassengerDelay:
		b.WriteString("_drt2")
	default:
		b.WriteString("_drt")
	}

	b.WriteString("_di")
	if p.UseAlonsoMora {
		b.WriteString(notApplicable)
	} else {
		b.WriteString(strconv.Itoa(p.DispatchInterval))
	}

	if vulnerable {
		b.WriteString("_pv")
		b.WriteString(strconv.FormatBool(p.PrebookVulnerable))
		b.WriteString("_ps")
		if p.PrebookVulnerable {
			b.WriteString(notApplicable)
		} else {
			b.WriteString(formatFloat(p.PrebookingShare))
		}
	} else {
		b.WriteString("_pvx_ps")
		b.WriteString(formatFloat(p.PrebookingShare))
	}

	b.WriteString("_pwf")
	if p.InclusivePenalty {
		b.WriteString(formatFloat(p.WeightAlpha))
	} else {
		b.WriteString(notApplicable)
	}

	if p.RandomSeed != DefaultRandomSeed {
		b.WriteString("_rs")
		b.WriteString(strconv.FormatInt(p.RandomSeed, 10))
	}
	return b.String()
}

// formatFloat renders floats the way directory names written by earlier
// sweeps do: whole numbers keep a trailing ".0" (100.0, 0.0), magnitudes in
// [1e-3, 1e7) use plain decimal form (0.1), and anything else switches to
// the computerized exponent form (1.0E-4, 1.25E7).
func formatFloat(f float64) string {
	abs := math.Abs(f)
	if f == 0 || (abs >= 1e-3 && abs < 1e7) || math.IsInf(f, 0) || math.IsNaN(f) {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".nN") {
			s += ".0"
		}
		return s
	}

	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'E', -1, 64), "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mantissa + "E" + strconv.Itoa(e)
}
