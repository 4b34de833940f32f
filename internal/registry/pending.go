package registry

import (
	"context"
	"path/filepath"

	"github.com/specialistvlad/poolsweep/internal/ctxlog"
	"github.com/specialistvlad/poolsweep/internal/experiment"
	"github.com/specialistvlad/poolsweep/internal/fsutil"
)

// Partition splits the records, in registration order, into those still to
// run and those whose output directory already contains marker. It does not
// touch the filesystem beyond checking for the marker.
func (r *Registry) Partition(marker string) (pending, completed []experiment.Record) {
	for _, rec := range r.Records() {
		if fsutil.FileExists(filepath.Join(rec.OutputDir, marker)) {
			completed = append(completed, rec)
		} else {
			pending = append(pending, rec)
		}
	}
	return pending, completed
}

// Pending returns the records that still need to run, in registration
// order, along with the keys that were skipped because their output
// directory already contains marker.
//
// For every skipped record the artifact file is removed if present. Removal
// failures are logged and otherwise ignored.
func (r *Registry) Pending(ctx context.Context, marker, artifact string) (pending []experiment.Record, skipped []string) {
	logger := ctxlog.FromContext(ctx)

	pending, completed := r.Partition(marker)
	for _, rec := range completed {
		skipped = append(skipped, rec.Key)
		logger.Info("⏭️ Skipping completed experiment.", "key", rec.Key, "output_dir", rec.OutputDir)

		artifactPath := filepath.Join(rec.OutputDir, artifact)
		removed, err := fsutil.RemoveIfExists(artifactPath)
		if err != nil {
			logger.Warn("Could not remove artifact of completed experiment.", "path", artifactPath, "error", err)
			continue
		}
		if removed {
			logger.Debug("Removed artifact of completed experiment.", "path", artifactPath)
		}
	}

	logger.Debug("Pending experiments resolved.", "pending", len(pending), "skipped", len(skipped))
	return pending, skipped
}
