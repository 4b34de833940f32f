// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package valuation

import (
	"context"
	"fmt"

	"github.com/specialistvlad/poolsweep/internal/ctxlog"
	"github.com/specialistvlad/poolsweep/internal/population"
)

// InsertionCostFunc is the solver hook for normalized insertion costs.
type InsertionCostFunc func(baseline float64, passengers []population.PersonID) float64

// RejectionPenaltyFunc is the solver hook for rejection penalties.
type RejectionPenaltyFunc func(req Request, isReassignment bool) float64

// Solver is the part of the external dispatch solver the module registers
// with. The solver calls the hooks synchronously during its search.
type Solver interface {
	SetStopDurationProvider(p StopDurationProvider)
	SetInsertionCost(fn InsertionCostFunc)
	SetRejectionPenalty(fn RejectionPenaltyFunc)
}

// Config selects which hooks are installed.
type Config struct {
	Dropoff DropoffMode
	// FairInsertion installs the normalized insertion cost.
	FairInsertion bool
	// InclusivePenalty installs the weighted rejection penalty.
	InclusivePenalty bool
	Penalty          PenaltyConfig
}

// Module is one experiment's valuation setup.
type Module struct {
	Stops     *StopTimeProvider
	Insertion *FairInsertionCost
	Rejection *RejectionPenalty
}

// New builds the hooks for pop. Configuration errors, such as an unusable
// penalty setup, are reported here rather than when the solver calls in.
func New(pop *population.Population, cfg Config) (*Module, error) {
	m := &Module{Stops: NewStopTimeProvider(pop, cfg.Dropoff)}
	if cfg.FairInsertion {
		m.Insertion = NewFairInsertionCost(m.Stops)
	}
	if cfg.InclusivePenalty {
		penalty, err := NewRejectionPenalty(pop, m.Stops, cfg.Penalty)
		if err != nil {
			return nil, fmt.Errorf("inclusive rejection penalty: %w", err)
		}
		m.Rejection = penalty
	}
	return m, nil
}

// Install registers the configured hooks with solver.
func (m *Module) Install(ctx context.Context, solver Solver) {
	logger := ctxlog.FromContext(ctx)

	solver.SetStopDurationProvider(m.Stops)
	logger.Debug("Registered stop duration provider.", "dropoff_mode", m.Stops.DropoffMode().String())

	if m.Insertion != nil {
		solver.SetInsertionCost(m.Insertion.Cost)
		logger.Debug("Registered fair insertion cost.")
	}
	if m.Rejection != nil {
		solver.SetRejectionPenalty(m.Rejection.Penalty)
		logger.Debug("Registered inclusive rejection penalty.", "lowest_interaction_time", m.Rejection.lowest, "alpha", m.Rejection.cfg.WeightAlpha)
	}
}
