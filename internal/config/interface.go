package config

import "context"

// Loader is the interface for a format-specific sweep loader.
type Loader interface {
	// Load reads every sweep file under the given paths and merges them into
	// a single model. With no paths it returns the built-in sweep.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
