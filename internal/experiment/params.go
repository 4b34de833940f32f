// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package experiment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/poolsweep/internal/grid"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Params is the full parameter set of one experiment. The cty tags are the
// dimension names accepted in sweep definitions.
type Params struct {
	FleetSize              int     `cty:"fleet_size" yaml:"fleet_size"`
	UseAlonsoMora          bool    `cty:"use_alonso_mora" yaml:"use_alonso_mora"`
	VulnerableProbability  float64 `cty:"vulnerable_probability" yaml:"vulnerable_probability"`
	VulnerableTime         int     `cty:"vulnerable_time" yaml:"vulnerable_time"`
	DispatchInterval       int     `cty:"dispatch_interval" yaml:"dispatch_interval"`
	PrebookVulnerable      bool    `cty:"prebook_vulnerable" yaml:"prebook_vulnerable"`
	PrebookingShare        float64 `cty:"prebooking_share" yaml:"prebooking_share"`
	MinimizePassengerDelay bool    `cty:"minimize_passenger_delay" yaml:"minimize_passenger_delay"`
	InclusivePenalty       bool    `cty:"inclusive_penalty" yaml:"inclusive_penalty"`
	WeightAlpha            float64 `cty:"weight_alpha" yaml:"weight_alpha"`
	RandomSeed             int64   `cty:"random_seed" yaml:"random_seed"`
}

// DefaultRandomSeed is the engine's seed when none is passed.
const DefaultRandomSeed = 1234

// DefaultParams returns the values used for every dimension a sweep does
// not declare.
func DefaultParams() Params {
	return Params{
		FleetSize:             100,
		UseAlonsoMora:         false,
		VulnerableProbability: 0,
		VulnerableTime:        120,
		DispatchInterval:      1,
		WeightAlpha:           1,
		RandomSeed:            DefaultRandomSeed,
	}
}

var paramsType = mustImpliedType()

func mustImpliedType() cty.Type {
	ty, err := gocty.ImpliedType(Params{})
	if err != nil {
		panic(fmt.Sprintf("experiment: cannot derive cty type for Params: %s", err))
	}
	return ty
}

// DimensionNames lists every dimension name a sweep may declare, sorted.
func DimensionNames() []string {
	attrs := paramsType.AttributeTypes()
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDimension checks that d names a known parameter and converts
// every value to that parameter's type, so type errors surface when the
// sweep is loaded rather than halfway through expansion.
func ValidateDimension(d grid.Dimension) (grid.Dimension, error) {
	if !paramsType.HasAttribute(d.Name) {
		return grid.Dimension{}, fmt.Errorf("unknown dimension %q (known: %s)", d.Name, strings.Join(DimensionNames(), ", "))
	}
	want := paramsType.AttributeType(d.Name)

	converted := make([]cty.Value, len(d.Values))
	for i, v := range d.Values {
		cv, err := convert.Convert(v, want)
		if err != nil {
			return grid.Dimension{}, fmt.Errorf("dimension %q value #%d: %w", d.Name, i, err)
		}
		// Decode once to catch values that convert but do not fit the Go
		// field, such as 0.5 for an integer dimension.
		var target Params
		if err := gocty.FromCtyValue(mergeAttributes(defaultsObject(), map[string]cty.Value{d.Name: cv}), &target); err != nil {
			return grid.Dimension{}, fmt.Errorf("dimension %q value #%d: %w", d.Name, i, err)
		}
		converted[i] = cv
	}
	return grid.NewDimension(d.Name, converted...), nil
}

// FromCombination resolves a raw combination on top of defaults. Override
// rules are not applied here; see ApplyOverrides.
func FromCombination(c grid.Combination, defaults Params) (Params, error) {
	base, err := gocty.ToCtyValue(defaults, paramsType)
	if err != nil {
		return Params{}, fmt.Errorf("encoding defaults: %w", err)
	}

	attrs := c.Attributes()
	for name, v := range attrs {
		if !paramsType.HasAttribute(name) {
			return Params{}, fmt.Errorf("unknown dimension %q", name)
		}
		cv, err := convert.Convert(v, paramsType.AttributeType(name))
		if err != nil {
			return Params{}, fmt.Errorf("dimension %q: %w", name, err)
		}
		attrs[name] = cv
	}

	var p Params
	if err := gocty.FromCtyValue(mergeAttributes(base, attrs), &p); err != nil {
		return Params{}, fmt.Errorf("decoding combination %s: %w", c, err)
	}
	return p, nil
}

// Value returns the parameters as a cty object, keyed by dimension name.
func (p Params) Value() (cty.Value, error) {
	return gocty.ToCtyValue(p, paramsType)
}

func defaultsObject() cty.Value {
	v, err := gocty.ToCtyValue(DefaultParams(), paramsType)
	if err != nil {
		panic(err)
	}
	return v
}

func mergeAttributes(base cty.Value, overrides map[string]cty.Value) cty.Value {
	attrs := base.AsValueMap()
	for k, v := range overrides {
		attrs[k] = v
	}
	return cty.ObjectVal(attrs)
}
