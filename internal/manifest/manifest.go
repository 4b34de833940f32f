// Package manifest records what a sweep was asked to do and how it ended,
// as a YAML file next to the experiment outputs.
package manifest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/poolsweep/internal/executor"
	"github.com/specialistvlad/poolsweep/internal/experiment"
	"gopkg.in/yaml.v3"
)

// FileName is the manifest's name under the output root.
const FileName = "sweep_manifest.yaml"

// Manifest describes one sweep invocation.
type Manifest struct {
	RunID      string    `yaml:"run_id"`
	CreatedAt  time.Time `yaml:"created_at"`
	ConfigPath string    `yaml:"config_path"`
	OutputRoot string    `yaml:"output_root"`
	DryRun     bool      `yaml:"dry_run"`
	// Combinations is the raw cross-product size before deduplication.
	Combinations int `yaml:"combinations"`
	Unique       int `yaml:"unique"`
	// DivergentCollisions counts key collisions between non-equivalent
	// parameter sets.
	DivergentCollisions int      `yaml:"divergent_collisions,omitempty"`
	Skipped             []string `yaml:"skipped,omitempty"`
	Experiments         []Entry  `yaml:"experiments"`
	Result              *Result  `yaml:"result,omitempty"`
}

// Entry is one experiment scheduled by the sweep.
type Entry struct {
	Key       string            `yaml:"key"`
	OutputDir string            `yaml:"output_dir"`
	Params    experiment.Params `yaml:"params"`
	Args      []string          `yaml:"args,flow"`
}

// Result is the executor's outcome.
type Result struct {
	FinishedAt time.Time `yaml:"finished_at"`
	Succeeded  []string  `yaml:"succeeded,omitempty"`
	Failed     []string  `yaml:"failed,omitempty"`
	Aborted    []string  `yaml:"aborted,omitempty"`
	NotStarted []string  `yaml:"not_started,omitempty"`
	Error      string    `yaml:"error,omitempty"`
}

// New creates a manifest with a fresh run id.
func New(now time.Time) *Manifest {
	return &Manifest{RunID: uuid.NewString(), CreatedAt: now.UTC()}
}

// AddExperiments appends an entry per record.
func (m *Manifest) AddExperiments(records []experiment.Record) {
	for _, rec := range records {
		m.Experiments = append(m.Experiments, Entry{
			Key:       rec.Key,
			OutputDir: rec.OutputDir,
			Params:    rec.Params,
			Args:      rec.Args,
		})
	}
}

// Finish records the executor outcome.
func (m *Manifest) Finish(now time.Time, summary *executor.Summary, err error) {
	r := &Result{FinishedAt: now.UTC()}
	if summary != nil {
		r.Succeeded = summary.Succeeded
		r.Failed = summary.Failed
		r.Aborted = summary.Aborted
		r.NotStarted = summary.NotStarted
	}
	if err != nil {
		r.Error = err.Error()
	}
	m.Result = r
}

// Encode writes the manifest as YAML.
func (m *Manifest) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return enc.Close()
}

// Write stores the manifest at dir/FileName, creating dir if needed, and
// returns the path written.
func (m *Manifest) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output root: %w", err)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	return path, nil
}

// Read loads a manifest written by Write.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}
