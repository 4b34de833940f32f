package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/poolsweep/internal/app"
	"github.com/specialistvlad/poolsweep/internal/registry"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("poolsweep", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
PoolSweep - runs parameter sweeps of ride-pooling simulations.

Usage:
  poolsweep --config-path CONFIG [options] [SWEEP_PATH...]

Arguments:
  SWEEP_PATH
    Path to a .hcl sweep file or a directory of them. Without one, the
    built-in benchmark sweep is used.

Options:
`)
		flagSet.PrintDefaults()
	}

	configPathFlag := flagSet.String("config-path", "", "Path to the simulation base configuration (required).")
	outputFlag := flagSet.String("base-output-path", "outputs", "Directory under which every experiment gets its own output directory.")
	parallelFlag := flagSet.Int("parallel-sims", 1, "Number of simulations running at the same time.")
	noSimFlag := flagSet.Bool("no-sim", false, "Build the sweep and print its manifest without running anything.")
	sweepFlag := flagSet.String("sweep", "", "Path to the sweep file or directory.")
	sFlag := flagSet.String("s", "", "Path to the sweep file or directory (shorthand).")
	policyFlag := flagSet.String("collision-policy", registry.KeepFirst.String(), "Which experiment survives a key collision. Options: 'keep-first' or 'keep-last'.")
	shuffleFlag := flagSet.Bool("shuffle", true, "Randomize the order experiments are dispatched in.")
	seedFlag := flagSet.Uint64("shuffle-seed", 0, "Seed for the dispatch shuffle. 0 picks one from the clock.")
	intervalFlag := flagSet.Duration("launch-interval", 0, "Minimum delay between two simulation launches, e.g. '30s'.")
	progressFlag := flagSet.String("progress-url", "", "Optional socket.io endpoint receiving progress events, e.g. 'http://localhost:3000/socket.io/#sweeps'.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	var sweepPaths []string
	switch {
	case *sweepFlag != "":
		sweepPaths = append(sweepPaths, *sweepFlag)
	case *sFlag != "":
		sweepPaths = append(sweepPaths, *sFlag)
	}
	sweepPaths = append(sweepPaths, flagSet.Args()...)
	slog.Debug("Sweep paths determined.", "paths", sweepPaths)

	if *configPathFlag == "" {
		flagSet.Usage()
		return nil, false, usageError("missing required flag: --config-path")
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	policy, err := registry.ParsePolicy(strings.ToLower(*policyFlag))
	if err != nil {
		return nil, false, usageError("invalid collision-policy: %v", err)
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPath:      *configPathFlag,
		SweepPaths:      sweepPaths,
		OutputRoot:      *outputFlag,
		Parallelism:     *parallelFlag,
		DryRun:          *noSimFlag,
		CollisionPolicy: policy,
		Shuffle:         *shuffleFlag,
		ShuffleSeed:     *seedFlag,
		LaunchInterval:  *intervalFlag,
		ProgressURL:     *progressFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
