package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/poolsweep/internal/config"
	"github.com/specialistvlad/poolsweep/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func asInt(t *testing.T, v cty.Value) int64 {
	t.Helper()
	require.Equal(t, cty.Number, v.Type())
	i, _ := v.AsBigFloat().Int64()
	return i
}

func TestLoader_FullSweep(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	path := writeFile(t, dir, "sweep.hcl", `
engine {
  command   = ["sim", "--quiet"]
  overrides = { "config:global.numberOfThreads" = 4 }
}

output {
  completion_marker = "done.csv"
}

valuation {
  dropoff_mode         = "PICKUP"
  unassignment_penalty = 1800
  rejection_penalty    = 3600
  fair_costs           = true
}

dimension "fleet_size" {
  values = range(100, 300, 100)
}

dimension "weight_alpha" {
  values = distinct(concat([1, 2], [2, 3]))
}
`)

	// --- Act ---
	model, err := NewLoader().Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"sim", "--quiet"}, model.Engine.Command)
	assert.Equal(t, map[string]string{"config:global.numberOfThreads": "4"}, model.Engine.Overrides)
	assert.Equal(t, "done.csv", model.Output.CompletionMarker)
	assert.Equal(t, config.DefaultArtifact, model.Output.Artifact, "unset output fields keep their defaults")
	assert.Equal(t, config.Valuation{DropoffMode: "pickup", UnassignmentPenalty: 1800, RejectionPenalty: 3600, FairCosts: true}, model.Valuation)

	require.Len(t, model.Dimensions, 2)
	fleet, ok := model.Dimension("fleet_size")
	require.True(t, ok)
	require.Len(t, fleet.Values, 2)
	assert.Equal(t, int64(100), asInt(t, fleet.Values[0]))
	assert.Equal(t, int64(200), asInt(t, fleet.Values[1]))

	alpha, ok := model.Dimension("weight_alpha")
	require.True(t, ok)
	assert.Len(t, alpha.Values, 3)
	assert.Equal(t, 6, grid.Size(model.Dimensions))
}

func TestLoader_MergesDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a_engine.hcl", `engine { command = ["sim"] }`)
	writeFile(t, dir, "b_dims.hcl", `
dimension "fleet_size" { values = [100] }
dimension "use_alonso_mora" { values = [true, false] }
`)
	writeFile(t, dir, "notes.txt", "ignored")

	model, err := NewLoader().Load(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, []string{"sim"}, model.Engine.Command)
	require.Len(t, model.Dimensions, 2)
	assert.Equal(t, "fleet_size", model.Dimensions[0].Name)
	assert.Equal(t, "use_alonso_mora", model.Dimensions[1].Name)
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"a.hcl": `dimension "fleet_size" {`},
			wantErr: "failed to parse",
		},
		{
			name:    "unknown dimension",
			files:   map[string]string{"a.hcl": `dimension "colour" { values = [1] }`},
			wantErr: `unknown dimension "colour"`,
		},
		{
			name:    "value of wrong type",
			files:   map[string]string{"a.hcl": `dimension "fleet_size" { values = ["many"] }`},
			wantErr: `dimension "fleet_size" value #0`,
		},
		{
			name:    "fractional integer",
			files:   map[string]string{"a.hcl": `dimension "fleet_size" { values = [1.5] }`},
			wantErr: `dimension "fleet_size" value #0`,
		},
		{
			name:    "values not a list",
			files:   map[string]string{"a.hcl": `dimension "fleet_size" { values = 100 }`},
			wantErr: "values must be a list",
		},
		{
			name:    "empty dimension",
			files:   map[string]string{"a.hcl": `dimension "fleet_size" { values = [] }`},
			wantErr: `dimension "fleet_size" has no values`,
		},
		{
			name: "duplicate dimension",
			files: map[string]string{
				"a.hcl": `dimension "fleet_size" { values = [1] }`,
				"b.hcl": `dimension "fleet_size" { values = [2] }`,
			},
			wantErr: "declared more than once",
		},
		{
			name: "duplicate engine block",
			files: map[string]string{
				"a.hcl": `engine { command = ["a"] }`,
				"b.hcl": `engine { command = ["b"] }`,
			},
			wantErr: `"engine" block already declared`,
		},
		{
			name:    "override without prefix",
			files:   map[string]string{"a.hcl": `engine { overrides = { "global.numberOfThreads" = "4" } }`},
			wantErr: `must start with "config:"`,
		},
		{
			name:    "managed override",
			files:   map[string]string{"a.hcl": `engine { overrides = { "config:controler.lastIteration" = "5" } }`},
			wantErr: "set per experiment",
		},
		{
			name:    "bad dropoff mode",
			files:   map[string]string{"a.hcl": `valuation { dropoff_mode = "half" }`},
			wantErr: "invalid dropoff mode",
		},
		{
			name:    "negative penalty",
			files:   map[string]string{"a.hcl": `valuation { rejection_penalty = -1 }`},
			wantErr: "must not be negative",
		},
		{
			name:    "unknown block",
			files:   map[string]string{"a.hcl": `step "print" "a" {}`},
			wantErr: "failed to decode",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			for name, content := range tc.files {
				writeFile(t, dir, name, content)
			}

			_, err := NewLoader().Load(context.Background(), dir)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoader_MissingPath(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.hcl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error accessing sweep path")
}

func TestLoader_EmptyDirectory(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .hcl files found")
}

func TestLoader_DefaultSweep(t *testing.T) {
	t.Parallel()

	model, err := NewLoader().Load(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, model.Engine.Command)
	assert.Equal(t, config.DefaultCompletionMarker, model.Output.CompletionMarker)
	require.Len(t, model.Dimensions, 10)
	// 8 fleets x 9 shares x 2 times x 2 objectives x 2 penalties x 20 alphas
	assert.Equal(t, 11520, grid.Size(model.Dimensions))

	alpha, ok := model.Dimension("weight_alpha")
	require.True(t, ok)
	require.Len(t, alpha.Values, 20)
	assert.Equal(t, int64(1), asInt(t, alpha.Values[0]))
	assert.Equal(t, int64(1900), asInt(t, alpha.Values[19]))
}

func TestLoader_FleetSizingSweep(t *testing.T) {
	t.Parallel()

	model, err := NewLoader().Load(context.Background(), filepath.Join("..", "..", "sweeps", "fleet_sizing.hcl"))

	require.NoError(t, err)
	assert.Equal(t, config.DefaultCompletionMarker, model.Output.CompletionMarker)
	assert.Equal(t, 20, grid.Size(model.Dimensions))

	fleet, ok := model.Dimension("fleet_size")
	require.True(t, ok)
	require.Len(t, fleet.Values, 20)
	assert.Equal(t, int64(50), asInt(t, fleet.Values[0]))
	assert.Equal(t, int64(1000), asInt(t, fleet.Values[19]))
}
