// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package experiment turns a raw grid combination into a runnable
// experiment.
//
// A combination only carries the dimensions a sweep declares. Params fills
// in the rest from defaults, the override rules pin fields that are
// meaningless under the chosen configuration, and the resulting effective
// parameters determine both the experiment key (which doubles as the output
// directory name) and the flat argument list handed to the simulation
// engine.
//
// Why are overrides a separate step?
//
// Sweeps are declared as plain cross-products, so many raw combinations are
// redundant (a dispatch interval is irrelevant to a solver that assigns
// every second). Rather than rejecting such sweeps, the override rules
// normalize redundant fields so that equivalent combinations collapse onto
// the same key, and the registry deduplicates them.
package experiment
