// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package experiment

import (
	"path/filepath"
	"sort"
	"strconv"
)

// Engine flag names shared by the argument builder and the engine-side parser.
const (
	FlagConfigPath             = "config-path"
	FlagRandomSeed             = "random-seed"
	FlagVulnerableProbability  = "vulnerable-probability"
	FlagVulnerableTime         = "vulnerable-time"
	FlagFleetSize              = "fleet-size"
	FlagUseAlonsoMora          = "use-alonso-mora"
	FlagPrebookVulnerable      = "prebook-vulnerable"
	FlagPrebookingProbability  = "prebooking-probability"
	FlagMinimizePassengerDelay = "minimize-passenger-delays"
	FlagInclusivePenalty       = "am-inclusive-penalty"
	FlagWeightAlpha            = "am-weight-alpha"
	FlagDropoffMode            = "dropoff-mode"
	FlagUnassignmentPenalty    = "unassignment-penalty"
	FlagRejectionPenalty       = "rejection-penalty"
	FlagFairCosts              = "fair-costs"

	// ConfigOverridePrefix marks engine-native configuration overrides,
	// which are passed through untouched.
	ConfigOverridePrefix = "config:"

	OverrideOutputDirectory  = "config:controler.outputDirectory"
	OverrideLastIteration    = "config:controler.lastIteration"
	OverrideDispatchInterval = "config:multiModeDrt.drt[mode=drt].dispatchInterval"
)

// Settings are sweep-wide values that are part of every invocation but not
// of the experiment key.
type Settings struct {
	ConfigPath          string
	OutputRoot          string
	Overrides           map[string]string
	DropoffMode         string
	UnassignmentPenalty float64
	RejectionPenalty    float64
	FairCosts           bool
}

// Record is one registered experiment, ready for execution.
type Record struct {
	Key       string
	OutputDir string
	Args      []string
	Params    Params
}

// NewRecord derives the key, output directory and engine arguments for p.
func NewRecord(p Params, s Settings) Record {
	p = ApplyOverrides(p)
	key := Key(p)
	outputDir := filepath.Join(s.OutputRoot, key)
	return Record{
		Key:       key,
		OutputDir: outputDir,
		Args:      buildArgs(p, s, outputDir),
		Params:    p,
	}
}

func buildArgs(p Params, s Settings, outputDir string) []string {
	args := []string{
		"--" + FlagConfigPath, s.ConfigPath,
		"--" + FlagVulnerableProbability, formatFloat(p.VulnerableProbability),
		"--" + FlagVulnerableTime, strconv.Itoa(p.VulnerableTime),
		"--" + OverrideOutputDirectory, outputDir,
		// A sweep experiment is always a single-shot run.
		"--" + OverrideLastIteration, "0",
		"--" + FlagFleetSize, strconv.Itoa(p.FleetSize),
		"--" + FlagUseAlonsoMora, strconv.FormatBool(p.UseAlonsoMora),
		"--" + FlagPrebookVulnerable, strconv.FormatBool(p.PrebookVulnerable),
		"--" + FlagPrebookingProbability, formatFloat(p.PrebookingShare),
		"--" + FlagMinimizePassengerDelay, strconv.FormatBool(p.MinimizePassengerDelay),
		"--" + OverrideDispatchInterval, strconv.Itoa(p.DispatchInterval),
		"--" + FlagInclusivePenalty, strconv.FormatBool(p.InclusivePenalty),
		"--" + FlagWeightAlpha, formatFloat(p.WeightAlpha),
		"--" + FlagRandomSeed, strconv.FormatInt(p.RandomSeed, 10),
	}

	if s.DropoffMode != "" {
		args = append(args, "--"+FlagDropoffMode, s.DropoffMode)
	}
	if s.UnassignmentPenalty > 0 {
		args = append(args, "--"+FlagUnassignmentPenalty, formatFloat(s.UnassignmentPenalty))
	}
	if s.RejectionPenalty > 0 {
		args = append(args, "--"+FlagRejectionPenalty, formatFloat(s.RejectionPenalty))
	}
	if s.FairCosts {
		args = append(args, "--"+FlagFairCosts, "true")
	}

	keys := make([]string, 0, len(s.Overrides))
	for k := range s.Overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--"+k, s.Overrides[k])
	}
	return args
}
