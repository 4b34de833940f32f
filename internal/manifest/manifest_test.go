package manifest

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/poolsweep/internal/executor"
	"github.com/specialistvlad/poolsweep/internal/experiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []experiment.Record {
	p := experiment.DefaultParams()
	p.VulnerableProbability = 0.2
	a := experiment.NewRecord(p, experiment.Settings{ConfigPath: "config.xml", OutputRoot: "out"})
	p.FleetSize = 200
	b := experiment.NewRecord(p, experiment.Settings{ConfigPath: "config.xml", OutputRoot: "out"})
	return []experiment.Record{a, b}
}

func TestNew(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("CET", 3600))
	m := New(now)

	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, m.CreatedAt.Location())
	assert.True(t, m.CreatedAt.Equal(now))
	assert.NotEqual(t, m.RunID, New(now).RunID)
}

func TestWriteRead(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	m := New(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC))
	m.ConfigPath = "config.xml"
	m.OutputRoot = dir
	m.Combinations = 10
	m.Unique = 2
	m.Skipped = []string{"old"}
	m.AddExperiments(sampleRecords())
	m.Finish(time.Date(2025, 3, 4, 6, 0, 0, 0, time.UTC),
		&executor.Summary{Succeeded: []string{m.Experiments[0].Key}, Failed: []string{m.Experiments[1].Key}},
		errors.New("experiment failed"))

	// --- Act ---
	path, err := m.Write(dir)
	require.NoError(t, err)
	got, err := Read(path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, m.RunID, got.RunID)
	assert.Equal(t, 10, got.Combinations)
	assert.Equal(t, []string{"old"}, got.Skipped)
	require.Len(t, got.Experiments, 2)
	assert.Equal(t, m.Experiments[0].Key, got.Experiments[0].Key)
	assert.Equal(t, m.Experiments[1].Params, got.Experiments[1].Params)
	assert.Equal(t, m.Experiments[1].Args, got.Experiments[1].Args)
	require.NotNil(t, got.Result)
	assert.Equal(t, "experiment failed", got.Result.Error)
	assert.Equal(t, []string{m.Experiments[1].Key}, got.Result.Failed)
}

func TestEncode_UsesSnakeCaseParams(t *testing.T) {
	t.Parallel()

	m := New(time.Now())
	m.DryRun = true
	m.AddExperiments(sampleRecords()[:1])

	buf := &bytes.Buffer{}
	require.NoError(t, m.Encode(buf))

	out := buf.String()
	assert.Contains(t, out, "dry_run: true")
	assert.Contains(t, out, "vulnerable_probability: 0.2")
	assert.Contains(t, out, "fleet_size: 100")
	assert.NotContains(t, out, "result:", "unfinished sweeps have no result")
}

func TestRead_Missing(t *testing.T) {
	t.Parallel()

	_, err := Read("does-not-exist.yaml")
	require.Error(t, err)
}
