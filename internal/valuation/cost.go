// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package valuation

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/poolsweep/internal/population"
)

// ErrIncompatibleProvider is returned when the rejection penalty is paired
// with a stop duration provider that does not read interaction times.
var ErrIncompatibleProvider = errors.New("rejection penalty requires the interaction-time stop duration provider")

// Request is the solver's view of a ride request.
type Request struct {
	ID         string
	Passengers []population.PersonID
}

// FairInsertionCost normalizes the solver's detour cost.
type FairInsertionCost struct {
	stops *StopTimeProvider
}

// NewFairInsertionCost creates the insertion cost hook.
func NewFairInsertionCost(stops *StopTimeProvider) *FairInsertionCost {
	return &FairInsertionCost{stops: stops}
}

// Cost divides the baseline detour cost by the requesting passengers' stop
// duration.
func (c *FairInsertionCost) Cost(baseline float64, passengers []population.PersonID) float64 {
	return baseline / c.stops.StopDuration(passengers)
}

// PenaltyConfig configures RejectionPenalty.
type PenaltyConfig struct {
	UnassignmentPenalty  float64
	BaseRejectionPenalty float64
	// WeightAlpha multiplies the weight of passengers slower than the
	// population minimum. 1 leaves weights untouched.
	WeightAlpha float64
}

// MinimumSource reports the population-wide minimum interaction time.
type MinimumSource interface {
	MinInteractionTime() float64
}

// RejectionPenalty scales rejection and unassignment penalties by a
// passenger's relative interaction time.
type RejectionPenalty struct {
	cfg    PenaltyConfig
	lowest float64
	stops  StopDurationProvider
}

// NewRejectionPenalty validates the pairing with stops and snapshots the
// population minimum.
func NewRejectionPenalty(pop MinimumSource, stops StopDurationProvider, cfg PenaltyConfig) (*RejectionPenalty, error) {
	if _, ok := stops.(*StopTimeProvider); !ok {
		return nil, fmt.Errorf("%w, got %T", ErrIncompatibleProvider, stops)
	}
	if cfg.WeightAlpha == 0 {
		cfg.WeightAlpha = 1
	}
	lowest := pop.MinInteractionTime()
	if lowest <= 0 {
		return nil, fmt.Errorf("population minimum interaction time must be positive, got %v", lowest)
	}
	return &RejectionPenalty{cfg: cfg, lowest: lowest, stops: stops}, nil
}

// Weight is the relative interaction time of the request's passengers,
// amplified by WeightAlpha when above one.
func (r *RejectionPenalty) Weight(req Request) float64 {
	weight := r.stops.PickupDuration(req.Passengers) / r.lowest
	if weight > 1 {
		weight *= r.cfg.WeightAlpha
	}
	return weight
}

// Penalty returns the weighted unassignment penalty when an assigned
// request is being displaced, and the weighted rejection penalty otherwise.
func (r *RejectionPenalty) Penalty(req Request, isReassignment bool) float64 {
	weight := r.Weight(req)
	if isReassignment {
		return r.cfg.UnassignmentPenalty * weight
	}
	return r.cfg.BaseRejectionPenalty * weight
}
