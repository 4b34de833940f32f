package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/specialistvlad/poolsweep/internal/config"
	"github.com/specialistvlad/poolsweep/internal/ctxlog"
	"github.com/specialistvlad/poolsweep/internal/executor"
	"github.com/specialistvlad/poolsweep/internal/experiment"
	"github.com/specialistvlad/poolsweep/internal/grid"
	"github.com/specialistvlad/poolsweep/internal/localexecutor"
	"github.com/specialistvlad/poolsweep/internal/manifest"
	"github.com/specialistvlad/poolsweep/internal/progress"
	"github.com/specialistvlad/poolsweep/internal/registry"
	"github.com/specialistvlad/poolsweep/internal/simrun"
)

// Run loads the sweep, registers every unique experiment and either prints
// the plan (dry run) or executes the experiments that have not completed yet.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	model, err := a.loader.Load(ctx, a.config.SweepPaths...)
	if err != nil {
		return fmt.Errorf("failed to load sweep: %w", err)
	}
	a.logger.Debug("Sweep definition loaded.", "dimensions", len(model.Dimensions))

	reg := registry.New(a.config.CollisionPolicy)
	if err := reg.RegisterAll(ctx, experiment.Expand(model.Dimensions, experiment.DefaultParams(), a.settings(model))); err != nil {
		return fmt.Errorf("failed to register experiments: %w", err)
	}

	man := manifest.New(a.now())
	man.ConfigPath = a.config.ConfigPath
	man.OutputRoot = a.config.OutputRoot
	man.Combinations = grid.Size(model.Dimensions)
	man.Unique = reg.Len()
	_, man.DivergentCollisions = reg.Collisions()

	ctx = ctxlog.With(ctx, "run_id", man.RunID)
	ctxlog.FromContext(ctx).Info("Sweep expanded.",
		"combinations", man.Combinations,
		"unique", man.Unique,
		"divergent_collisions", man.DivergentCollisions,
		"policy", a.config.CollisionPolicy.String(),
	)

	if a.config.DryRun {
		return a.dryRun(ctx, reg, model, man)
	}
	return a.sweep(ctx, reg, model, man)
}

func (a *App) settings(model *config.Model) experiment.Settings {
	return experiment.Settings{
		ConfigPath:          a.config.ConfigPath,
		OutputRoot:          a.config.OutputRoot,
		Overrides:           model.Engine.Overrides,
		DropoffMode:         model.Valuation.DropoffMode,
		UnassignmentPenalty: model.Valuation.UnassignmentPenalty,
		RejectionPenalty:    model.Valuation.RejectionPenalty,
		FairCosts:           model.Valuation.FairCosts,
	}
}

// dryRun prints the manifest of what would run without touching any
// experiment directory.
func (a *App) dryRun(ctx context.Context, reg *registry.Registry, model *config.Model, man *manifest.Manifest) error {
	logger := ctxlog.FromContext(ctx)

	pending, completed := reg.Partition(model.Output.CompletionMarker)
	man.DryRun = true
	for _, rec := range completed {
		man.Skipped = append(man.Skipped, rec.Key)
	}
	man.AddExperiments(pending)
	if err := preflight(pending); err != nil {
		return err
	}

	logger.Info("About to perform simulations.", "experiments", len(pending), "parallelism", a.config.Parallelism, "completed", len(completed))
	logger.Info("Dry run requested, no simulations started.")
	return man.Encode(a.outW)
}

func (a *App) sweep(ctx context.Context, reg *registry.Registry, model *config.Model, man *manifest.Manifest) error {
	logger := ctxlog.FromContext(ctx)

	pending, skipped := reg.Pending(ctx, model.Output.CompletionMarker, model.Output.Artifact)
	if err := preflight(pending); err != nil {
		return err
	}
	man.Skipped = skipped
	man.AddExperiments(pending)

	reporter, closeReporter := a.reporter(ctx)
	defer closeReporter()
	for _, key := range skipped {
		reporter.Report(ctx, progress.Stamped(progress.Event{Kind: progress.ExperimentSkipped, RunID: man.RunID, Key: key}))
	}

	path, err := man.Write(a.config.OutputRoot)
	if err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	logger.Debug("Manifest written.", "path", path)

	launcher, err := a.engineLauncher(model)
	if err != nil {
		return err
	}

	logger.Info("About to perform simulations.", "experiments", len(pending), "parallelism", a.config.Parallelism, "completed", len(skipped))
	reporter.Report(ctx, progress.Stamped(progress.Event{Kind: progress.SweepStarted, RunID: man.RunID, Total: len(pending)}))

	exec := localexecutor.New(localexecutor.Options{
		Parallelism:    a.config.Parallelism,
		Launcher:       launcher,
		Artifact:       model.Output.Artifact,
		Reporter:       reporter,
		Shuffle:        a.shuffler(ctx),
		LaunchInterval: a.config.LaunchInterval,
		RunID:          man.RunID,
	})
	summary, execErr := exec.Execute(ctx, pending)

	man.Finish(a.now(), summary, execErr)
	if _, err := man.Write(a.config.OutputRoot); err != nil {
		logger.Error("Could not record sweep result in manifest.", "path", path, "error", err)
		execErr = errors.Join(execErr, err)
	}

	if execErr != nil {
		reporter.Report(ctx, progress.Stamped(progress.Event{Kind: progress.SweepAborted, RunID: man.RunID, Error: execErr.Error()}))
		return fmt.Errorf("sweep aborted: %w", execErr)
	}
	reporter.Report(ctx, progress.Stamped(progress.Event{Kind: progress.SweepFinished, RunID: man.RunID, Total: summary.Total()}))
	return nil
}

// preflight parses every invocation the way the engine will, so a bad
// argument fails the sweep before any simulation starts.
func preflight(records []experiment.Record) error {
	for _, rec := range records {
		if _, err := simrun.Check(rec.Args); err != nil {
			return fmt.Errorf("experiment %s rejected before launch: %w", rec.Key, err)
		}
	}
	return nil
}

func (a *App) engineLauncher(model *config.Model) (executor.Launcher, error) {
	if a.launcher != nil {
		return a.launcher, nil
	}
	if len(model.Engine.Command) == 0 {
		return nil, errors.New("sweep does not declare an engine command")
	}
	return &executor.CommandLauncher{Command: model.Engine.Command}, nil
}

// reporter fans progress out to the log, the metrics and, when configured,
// a socket.io dashboard. An unreachable dashboard is not fatal.
func (a *App) reporter(ctx context.Context) (progress.Reporter, func()) {
	logger := ctxlog.FromContext(ctx)
	reporters := []progress.Reporter{progress.LogReporter{}, a.metrics}
	closeFn := func() {}

	if a.config.ProgressURL != "" {
		sio, err := progress.DialSocketIO(ctx, a.config.ProgressURL, progress.SocketIOOptions{})
		if err != nil {
			logger.Warn("Progress dashboard unavailable, continuing without it.", "url", a.config.ProgressURL, "error", err)
		} else {
			reporters = append(reporters, sio)
			closeFn = func() {
				if err := sio.Close(); err != nil {
					logger.Debug("Closing progress dashboard connection failed.", "error", err)
				}
			}
		}
	}
	return progress.Multi(reporters...), closeFn
}

func (a *App) shuffler(ctx context.Context) *rand.Rand {
	if !a.config.Shuffle {
		return nil
	}
	seed := a.config.ShuffleSeed
	if seed == 0 {
		seed = uint64(a.now().UnixNano())
	}
	ctxlog.FromContext(ctx).Debug("Dispatch order shuffled.", "seed", seed)
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
