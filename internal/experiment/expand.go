// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package experiment

import (
	"iter"

	"github.com/specialistvlad/poolsweep/internal/grid"
)

// Expand lazily turns every combination of dims into a Record. Dimensions
// not declared take their value from defaults. Decoding stops at the first
// combination that cannot be resolved.
func Expand(dims []grid.Dimension, defaults Params, s Settings) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for c := range grid.Product(dims) {
			p, err := FromCombination(c, defaults)
			if err != nil {
				yield(Record{}, err)
				return
			}
			if !yield(NewRecord(p, s), nil) {
				return
			}
		}
	}
}
