package config

import (
	"github.com/specialistvlad/poolsweep/internal/grid"
)

const (
	// DefaultCompletionMarker is the mode-share summary written last by a
	// finished simulation.
	DefaultCompletionMarker = "modestats.csv"
	// DefaultArtifact is the compressed event log left behind by every run.
	DefaultArtifact = "output_events.xml.gz"
)

// Model is the unified, format-agnostic representation of one sweep.
type Model struct {
	Engine     Engine
	Output     Output
	Valuation  Valuation
	Dimensions []grid.Dimension
}

// Engine describes how a single simulation is launched.
type Engine struct {
	// Command is the program and leading arguments; the experiment's own
	// arguments are appended to it.
	Command []string
	// Overrides are engine-native "config:" settings passed through as-is.
	Overrides map[string]string
}

// Output names the files the orchestrator inspects under each experiment
// directory.
type Output struct {
	CompletionMarker string
	Artifact         string
}

// Valuation holds the sweep-wide valuation settings forwarded to every run.
type Valuation struct {
	DropoffMode         string
	UnassignmentPenalty float64
	RejectionPenalty    float64
	FairCosts           bool
}

// NewModel returns an empty model with output defaults applied.
func NewModel() *Model {
	return &Model{
		Engine: Engine{Overrides: make(map[string]string)},
		Output: Output{
			CompletionMarker: DefaultCompletionMarker,
			Artifact:         DefaultArtifact,
		},
	}
}

// Dimension returns the declared dimension with the given name.
func (m *Model) Dimension(name string) (grid.Dimension, bool) {
	for _, d := range m.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return grid.Dimension{}, false
}
