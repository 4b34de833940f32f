package hcl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/poolsweep/internal/config"
	"github.com/specialistvlad/poolsweep/internal/ctxlog"
	"github.com/specialistvlad/poolsweep/internal/experiment"
	"github.com/specialistvlad/poolsweep/internal/fsutil"
	"github.com/specialistvlad/poolsweep/internal/grid"
	"github.com/specialistvlad/poolsweep/internal/valuation"
)

// managedOverrides are set per experiment and may not be overridden by a
// sweep file.
var managedOverrides = map[string]struct{}{
	experiment.OverrideOutputDirectory:  {},
	experiment.OverrideLastIteration:    {},
	experiment.OverrideDispatchInterval: {},
}

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL sweep loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths and merges them into one model.
// With no paths the embedded default sweep is loaded instead.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	if len(paths) == 0 {
		logger.Debug("No sweep paths given, using the built-in sweep.")
		return l.LoadDefault(ctx)
	}
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	b := newModelBuilder()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := b.add(ctx, file, hclFile.Body); err != nil {
			return nil, err
		}
	}
	return b.finish(ctx)
}

// LoadDefault loads the sweep compiled into the binary.
func (l *Loader) LoadDefault(ctx context.Context) (*config.Model, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(defaultSweep, defaultSweepName)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse built-in sweep: %w", diags)
	}
	b := newModelBuilder()
	if err := b.add(ctx, defaultSweepName, hclFile.Body); err != nil {
		return nil, err
	}
	return b.finish(ctx)
}

// findAllHCLFiles expands paths into a de-duplicated list of .hcl files.
// Unlike module search paths, a sweep path that does not exist is an error.
func findAllHCLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	for _, path := range paths {
		files, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("error accessing sweep path %s: %w", path, err)
		}
		for _, f := range files {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			all = append(all, f)
		}
	}
	return all, nil
}

// modelBuilder merges decoded files into a config.Model.
type modelBuilder struct {
	model   *config.Model
	evalCtx *hcl.EvalContext
	// declared records the file each singleton block came from.
	declared map[string]string
}

func newModelBuilder() *modelBuilder {
	return &modelBuilder{
		model:    config.NewModel(),
		evalCtx:  newEvalContext(),
		declared: make(map[string]string),
	}
}

func (b *modelBuilder) claim(block, file string) error {
	if prev, ok := b.declared[block]; ok {
		return fmt.Errorf("%s: %q block already declared in %s", file, block, prev)
	}
	b.declared[block] = file
	return nil
}

func (b *modelBuilder) add(ctx context.Context, file string, body hcl.Body) error {
	logger := ctxlog.FromContext(ctx)

	var root fileRoot
	if diags := gohcl.DecodeBody(body, b.evalCtx, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}

	if root.Engine != nil {
		if err := b.claim("engine", file); err != nil {
			return err
		}
		if err := b.applyEngine(root.Engine); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	if root.Output != nil {
		if err := b.claim("output", file); err != nil {
			return err
		}
		if err := b.applyOutput(root.Output); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	if root.Valuation != nil {
		if err := b.claim("valuation", file); err != nil {
			return err
		}
		if err := b.applyValuation(root.Valuation); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}

	for _, block := range root.Dimensions {
		values, err := evalValues(block.Values, b.evalCtx)
		if err != nil {
			return fmt.Errorf("dimension %q: %w", block.Name, err)
		}
		dim, err := experiment.ValidateDimension(grid.NewDimension(block.Name, values...))
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		b.model.Dimensions = append(b.model.Dimensions, dim)
		logger.Debug("Dimension loaded.", "name", dim.Name, "values", len(dim.Values), "file", file)
	}
	return nil
}

func (b *modelBuilder) applyEngine(block *engineBlock) error {
	b.model.Engine.Command = append([]string(nil), block.Command...)
	for k, v := range block.Overrides {
		if !strings.HasPrefix(k, experiment.ConfigOverridePrefix) {
			return fmt.Errorf("engine override %q must start with %q", k, experiment.ConfigOverridePrefix)
		}
		if _, managed := managedOverrides[k]; managed {
			return fmt.Errorf("engine override %q is set per experiment and cannot be overridden", k)
		}
		b.model.Engine.Overrides[k] = v
	}
	return nil
}

func (b *modelBuilder) applyOutput(block *outputBlock) error {
	if block.CompletionMarker != nil {
		if *block.CompletionMarker == "" {
			return errors.New("output completion_marker must not be empty")
		}
		b.model.Output.CompletionMarker = *block.CompletionMarker
	}
	if block.Artifact != nil {
		if *block.Artifact == "" {
			return errors.New("output artifact must not be empty")
		}
		b.model.Output.Artifact = *block.Artifact
	}
	return nil
}

func (b *modelBuilder) applyValuation(block *valuationBlock) error {
	v := &b.model.Valuation
	if block.DropoffMode != nil {
		mode, err := valuation.ParseDropoffMode(*block.DropoffMode)
		if err != nil {
			return err
		}
		v.DropoffMode = mode.String()
	}
	if block.UnassignmentPenalty != nil {
		if *block.UnassignmentPenalty < 0 {
			return fmt.Errorf("unassignment_penalty must not be negative, got %v", *block.UnassignmentPenalty)
		}
		v.UnassignmentPenalty = *block.UnassignmentPenalty
	}
	if block.RejectionPenalty != nil {
		if *block.RejectionPenalty < 0 {
			return fmt.Errorf("rejection_penalty must not be negative, got %v", *block.RejectionPenalty)
		}
		v.RejectionPenalty = *block.RejectionPenalty
	}
	if block.FairCosts != nil {
		v.FairCosts = *block.FairCosts
	}
	return nil
}

func (b *modelBuilder) finish(ctx context.Context) (*config.Model, error) {
	if err := grid.Validate(b.model.Dimensions); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("HCL loading complete.",
		"dimensions", len(b.model.Dimensions),
		"combinations", grid.Size(b.model.Dimensions),
		"overrides", len(b.model.Engine.Overrides),
	)
	return b.model, nil
}
