// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package grid

import (
	"errors"
	"fmt"
	"iter"

	"github.com/zclconf/go-cty/cty"
)

// Dimension is one named sweep axis.
type Dimension struct {
	Name   string
	Values []cty.Value
}

// NewDimension copies values so later mutation of the caller's slice cannot
// change the dimension.
func NewDimension(name string, values ...cty.Value) Dimension {
	vals := make([]cty.Value, len(values))
	copy(vals, values)
	return Dimension{Name: name, Values: vals}
}

// Combination is a single point of the cross-product.
type Combination struct {
	names  []string
	values []cty.Value
}

// Names returns the dimension names in declaration order.
func (c Combination) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Get returns the value chosen for the named dimension.
func (c Combination) Get(name string) (cty.Value, bool) {
	for i, n := range c.names {
		if n == name {
			return c.values[i], true
		}
	}
	return cty.NilVal, false
}

// Attributes returns the combination as an attribute map, ready to be merged
// into a cty object.
func (c Combination) Attributes() map[string]cty.Value {
	attrs := make(map[string]cty.Value, len(c.names))
	for i, n := range c.names {
		attrs[n] = c.values[i]
	}
	return attrs
}

// String renders the combination for logs, in declaration order.
func (c Combination) String() string {
	s := "{"
	for i, n := range c.names {
		if i > 0 {
			s += ", "
		}
		s += n + "=" + renderValue(c.values[i])
	}
	return s + "}"
}

func renderValue(v cty.Value) string {
	if v.IsNull() || !v.IsKnown() {
		return "null"
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Bool:
		return fmt.Sprintf("%t", v.True())
	case cty.Number:
		return v.AsBigFloat().Text('g', -1)
	}
	return v.GoString()
}

// Validate checks that dimension names are unique and non-empty and that
// every dimension has at least one value.
func Validate(dims []Dimension) error {
	seen := make(map[string]struct{}, len(dims))
	for _, d := range dims {
		if d.Name == "" {
			return errors.New("dimension name must not be empty")
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("dimension %q declared more than once", d.Name)
		}
		seen[d.Name] = struct{}{}
		if len(d.Values) == 0 {
			return fmt.Errorf("dimension %q has no values", d.Name)
		}
	}
	return nil
}

// Size is the number of combinations Product yields: the product of every
// dimension's cardinality. An empty dimension list has one (empty)
// combination.
func Size(dims []Dimension) int {
	total := 1
	for _, d := range dims {
		total *= len(d.Values)
	}
	return total
}

// Product returns the lazy cross-product of dims. The last dimension varies
// fastest.
func Product(dims []Dimension) iter.Seq[Combination] {
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.Name
	}

	return func(yield func(Combination) bool) {
		total := Size(dims)
		for i := 0; i < total; i++ {
			values := make([]cty.Value, len(dims))
			rem := i
			for dim := len(dims) - 1; dim >= 0; dim-- {
				cycle := len(dims[dim].Values)
				values[dim] = dims[dim].Values[rem%cycle]
				rem /= cycle
			}
			if !yield(Combination{names: names, values: values}) {
				return
			}
		}
	}
}
