package registry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/poolsweep/internal/ctxlog"
	"github.com/specialistvlad/poolsweep/internal/experiment"
	"github.com/specialistvlad/poolsweep/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func testContext(t *testing.T) (context.Context, *safeBuffer) {
	t.Helper()
	buf := &safeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), buf
}

func record(t *testing.T, root string, mutate func(p *experiment.Params)) experiment.Record {
	t.Helper()
	p := experiment.DefaultParams()
	mutate(&p)
	return experiment.NewRecord(p, experiment.Settings{ConfigPath: "config.xml", OutputRoot: root})
}

func TestRegister_EquivalentCollisionIsQuiet(t *testing.T) {
	t.Parallel()
	ctx, logs := testContext(t)
	reg := New(KeepFirst)

	// --- Arrange ---
	// Dispatch interval is meaningless under Alonso-Mora, so both collapse.
	a := record(t, "out", func(p *experiment.Params) { p.UseAlonsoMora = true; p.DispatchInterval = 1 })
	b := record(t, "out", func(p *experiment.Params) { p.UseAlonsoMora = true; p.DispatchInterval = 30 })
	require.Equal(t, a.Key, b.Key)

	// --- Act ---
	firstStored := reg.Register(ctx, a)
	secondStored := reg.Register(ctx, b)

	// --- Assert ---
	assert.True(t, firstStored)
	assert.False(t, secondStored)
	assert.Equal(t, 1, reg.Len())
	total, divergent := reg.Collisions()
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, divergent)
	assert.NotContains(t, logs.String(), "level=WARN")
}

func TestRegister_DivergentCollisionWarns(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		policy Policy
		keepB  bool
	}{
		{name: "keep first", policy: KeepFirst, keepB: false},
		{name: "keep last", policy: KeepLast, keepB: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx, logs := testContext(t)
			reg := New(tc.policy)

			a := record(t, "out", func(p *experiment.Params) { p.FleetSize = 100 })
			b := a
			// Same key, different effective parameters: a broken override rule.
			b.Params.FleetSize = 999

			reg.Register(ctx, a)
			reg.Register(ctx, b)

			got, ok := reg.Get(a.Key)
			require.True(t, ok)
			if tc.keepB {
				assert.Equal(t, 999, got.Params.FleetSize)
			} else {
				assert.Equal(t, 100, got.Params.FleetSize)
			}
			_, divergent := reg.Collisions()
			assert.Equal(t, 1, divergent)
			assert.Contains(t, logs.String(), "level=WARN")
			assert.Contains(t, logs.String(), "non-equivalent")
		})
	}
}

func TestRegister_KeepLastPreservesOrder(t *testing.T) {
	t.Parallel()
	ctx, _ := testContext(t)
	reg := New(KeepLast)

	a := record(t, "out", func(p *experiment.Params) { p.FleetSize = 100 })
	b := record(t, "out", func(p *experiment.Params) { p.FleetSize = 200 })
	a2 := a
	a2.Args = append([]string{"--marker"}, a.Args...)

	reg.Register(ctx, a)
	reg.Register(ctx, b)
	reg.Register(ctx, a2)

	recs := reg.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, a.Key, recs[0].Key)
	assert.Equal(t, "--marker", recs[0].Args[0])
	assert.Equal(t, b.Key, recs[1].Key)
}

func TestRegisterAll_Grid(t *testing.T) {
	t.Parallel()
	ctx, _ := testContext(t)
	reg := New(KeepFirst)

	dims := []grid.Dimension{
		grid.NewDimension("fleet_size", cty.NumberIntVal(100), cty.NumberIntVal(200)),
		grid.NewDimension("use_alonso_mora", cty.True),
		grid.NewDimension("dispatch_interval", cty.NumberIntVal(1), cty.NumberIntVal(30), cty.NumberIntVal(60)),
		grid.NewDimension("inclusive_penalty", cty.False),
		grid.NewDimension("weight_alpha", cty.NumberIntVal(1), cty.NumberIntVal(100)),
	}

	err := reg.RegisterAll(ctx, experiment.Expand(dims, experiment.DefaultParams(), experiment.Settings{OutputRoot: "out"}))

	require.NoError(t, err)
	// Dispatch interval and alpha are both neutralized: one experiment per fleet size.
	assert.Equal(t, 2, reg.Len())
	total, divergent := reg.Collisions()
	assert.Equal(t, 10, total)
	assert.Equal(t, 0, divergent)
}

func TestPending_SkipsCompletedAndCleansArtifact(t *testing.T) {
	t.Parallel()
	ctx, logs := testContext(t)
	root := t.TempDir()
	reg := New(KeepFirst)

	// --- Arrange ---
	done := record(t, root, func(p *experiment.Params) { p.FleetSize = 100 })
	doneNoArtifact := record(t, root, func(p *experiment.Params) { p.FleetSize = 150 })
	partial := record(t, root, func(p *experiment.Params) { p.FleetSize = 200 })
	fresh := record(t, root, func(p *experiment.Params) { p.FleetSize = 300 })
	for _, rec := range []experiment.Record{done, doneNoArtifact, partial, fresh} {
		reg.Register(ctx, rec)
	}

	for _, dir := range []string{done.OutputDir, doneNoArtifact.OutputDir, partial.OutputDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(done.OutputDir, "modestats.csv"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(done.OutputDir, "output_events.xml.gz"), []byte("big"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(doneNoArtifact.OutputDir, "modestats.csv"), nil, 0o644))
	// A crashed run leaves its artifact but no marker.
	require.NoError(t, os.WriteFile(filepath.Join(partial.OutputDir, "output_events.xml.gz"), []byte("big"), 0o644))

	// --- Act ---
	pending, skipped := reg.Pending(ctx, "modestats.csv", "output_events.xml.gz")

	// --- Assert ---
	require.Len(t, pending, 2)
	assert.Equal(t, partial.Key, pending[0].Key)
	assert.Equal(t, fresh.Key, pending[1].Key)
	assert.Equal(t, []string{done.Key, doneNoArtifact.Key}, skipped)

	assert.NoFileExists(t, filepath.Join(done.OutputDir, "output_events.xml.gz"))
	assert.FileExists(t, filepath.Join(done.OutputDir, "modestats.csv"))
	assert.FileExists(t, filepath.Join(partial.OutputDir, "output_events.xml.gz"), "pending runs keep their files")
	assert.Contains(t, logs.String(), "Skipping completed experiment")
}

func TestPending_ArtifactRemovalFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	ctx, logs := testContext(t)
	root := t.TempDir()
	reg := New(KeepFirst)

	done := record(t, root, func(p *experiment.Params) { p.FleetSize = 100 })
	reg.Register(ctx, done)
	require.NoError(t, os.MkdirAll(done.OutputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(done.OutputDir, "modestats.csv"), nil, 0o644))
	// A non-empty directory in place of the artifact cannot be removed.
	require.NoError(t, os.MkdirAll(filepath.Join(done.OutputDir, "output_events.xml.gz", "nested"), 0o755))

	pending, skipped := reg.Pending(ctx, "modestats.csv", "output_events.xml.gz")

	assert.Empty(t, pending)
	assert.Equal(t, []string{done.Key}, skipped)
	assert.Contains(t, logs.String(), "Could not remove artifact")
}

func TestPending_LargeSweepNeverReturnsCompleted(t *testing.T) {
	t.Parallel()
	ctx, _ := testContext(t)
	root := t.TempDir()
	reg := New(KeepFirst)

	completed := make(map[string]bool)
	for fleet := 1; fleet <= 200; fleet++ {
		rec := record(t, root, func(p *experiment.Params) { p.FleetSize = fleet })
		reg.Register(ctx, rec)
		if fleet%3 == 0 {
			require.NoError(t, os.MkdirAll(rec.OutputDir, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(rec.OutputDir, "modestats.csv"), nil, 0o644))
			completed[rec.Key] = true
		}
	}

	pending, skipped := reg.Pending(ctx, "modestats.csv", "output_events.xml.gz")

	assert.Len(t, skipped, len(completed))
	assert.Len(t, pending, 200-len(completed))
	for _, rec := range pending {
		assert.False(t, completed[rec.Key], "completed experiment %s must not be pending", rec.Key)
	}
}

func TestPolicy_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "keep-first", KeepFirst.String())
	assert.Equal(t, "keep-last", KeepLast.String())
	assert.Equal(t, "Policy(7)", Policy(7).String())

	for _, p := range []Policy{KeepFirst, KeepLast} {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePolicy("newest")
	require.Error(t, err)
}

func TestPartition_DoesNotTouchArtifacts(t *testing.T) {
	t.Parallel()
	ctx, _ := testContext(t)
	root := t.TempDir()
	reg := New(KeepFirst)

	done := record(t, root, func(p *experiment.Params) { p.FleetSize = 100 })
	fresh := record(t, root, func(p *experiment.Params) { p.FleetSize = 200 })
	reg.Register(ctx, done)
	reg.Register(ctx, fresh)
	require.NoError(t, os.MkdirAll(done.OutputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(done.OutputDir, "modestats.csv"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(done.OutputDir, "output_events.xml.gz"), nil, 0o644))

	pending, completed := reg.Partition("modestats.csv")

	require.Len(t, pending, 1)
	require.Len(t, completed, 1)
	assert.Equal(t, fresh.Key, pending[0].Key)
	assert.Equal(t, done.Key, completed[0].Key)
	assert.FileExists(t, filepath.Join(done.OutputDir, "output_events.xml.gz"))
}
