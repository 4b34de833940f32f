// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package grid expands a set of sweep dimensions into their full
// cross-product.
//
// # Core Concepts
//
//   - Dimension: a named, ordered, immutable list of candidate values for one
//     sweep axis. Values are cty.Values so that they can come straight out of
//     an HCL expression without an intermediate Go representation.
//
//   - Combination: one element of the cross-product, mapping every dimension
//     name to exactly one of its values.
//
// The product is exposed as an iter.Seq so callers can stream very large
// sweeps without materializing them. The sequence is restartable: ranging
// over it twice yields the same combinations in the same order, and that
// order depends only on the order in which dimensions were declared (the
// last dimension varies fastest).
package grid
