// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package valuation translates per-person interaction times into costs the
// dispatch solver can see, without touching the solver's own search.
//
// It provides three hooks:
//
//   - StopTimeProvider: pickup and dropoff durations for a stop, the maximum
//     interaction time of the passengers involved.
//   - FairInsertionCost: the solver's detour cost divided by the requesting
//     passenger's stop duration, so slow boarding alone does not make a
//     request look expensive.
//   - RejectionPenalty: rejection and unassignment penalties scaled by how
//     much longer a passenger's interaction time is than the population
//     minimum, optionally amplified by an equity weight.
//
// All hooks are read-only after construction and safe for concurrent use by
// a solver that parallelizes its search.
package valuation
