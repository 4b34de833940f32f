package simrun

import (
	"context"
	"fmt"

	"github.com/specialistvlad/poolsweep/internal/ctxlog"
	"github.com/specialistvlad/poolsweep/internal/population"
	"github.com/specialistvlad/poolsweep/internal/valuation"
)

// AssignOptions maps the invocation onto attribute assignment.
func (o Options) AssignOptions() population.AssignOptions {
	return population.AssignOptions{
		Seed:                  o.Params.RandomSeed,
		VulnerableProbability: o.Params.VulnerableProbability,
		VulnerableTime:        float64(o.Params.VulnerableTime),
		PrebookVulnerable:     o.Params.PrebookVulnerable,
		PrebookingProbability: o.Params.PrebookingShare,
	}
}

// ValuationConfig selects the valuation hooks for the invocation. The
// inclusive penalty only exists under Alonso-Mora dispatch.
func (o Options) ValuationConfig() valuation.Config {
	return valuation.Config{
		Dropoff:          o.DropoffMode,
		FairInsertion:    o.FairCosts,
		InclusivePenalty: o.Params.UseAlonsoMora && o.Params.InclusivePenalty,
		Penalty: valuation.PenaltyConfig{
			UnassignmentPenalty:  o.UnassignmentPenalty,
			BaseRejectionPenalty: o.RejectionPenalty,
			WeightAlpha:          o.Params.WeightAlpha,
		},
	}
}

// Configure assigns person attributes to pop and installs the valuation
// hooks into solver. Every configuration error surfaces here, before the
// simulation starts.
func Configure(ctx context.Context, opts Options, pop *population.Population, solver valuation.Solver) (*valuation.Module, error) {
	logger := ctxlog.FromContext(ctx)

	summary, err := pop.Assign(opts.AssignOptions())
	if err != nil {
		return nil, fmt.Errorf("assigning person attributes: %w", err)
	}
	logger.Info("Person attributes assigned.",
		"persons", summary.Persons,
		"vulnerable", summary.Vulnerable,
		"prebooking", summary.Prebooking,
		"seed", opts.Params.RandomSeed,
	)

	mod, err := valuation.New(pop, opts.ValuationConfig())
	if err != nil {
		return nil, fmt.Errorf("configuring valuation: %w", err)
	}
	mod.Install(ctx, solver)
	return mod, nil
}

// Check parses args and rejects any invocation whose attribute assignment
// Configure would refuse. It needs no population, so a sweep can run it for
// every experiment before launching the first one.
func Check(args []string) (Options, error) {
	opts, err := ParseOptions(args)
	if err != nil {
		return Options{}, err
	}
	if err := opts.AssignOptions().Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
