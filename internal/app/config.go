package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/poolsweep/internal/registry"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string   // engine base configuration, forwarded to every run
	SweepPaths []string // hcl files or directories; empty selects the built-in sweep
	OutputRoot string

	Parallelism     int
	DryRun          bool
	CollisionPolicy registry.Policy
	Shuffle         bool
	ShuffleSeed     uint64 // 0 derives a seed from the clock
	LaunchInterval  time.Duration
	ProgressURL     string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.OutputRoot == "" {
		return nil, errors.New("OutputRoot is a required configuration field and cannot be empty")
	}
	if cfg.Parallelism < 1 {
		return nil, fmt.Errorf("Parallelism must be at least 1, got %d", cfg.Parallelism)
	}
	if cfg.LaunchInterval < 0 {
		return nil, fmt.Errorf("LaunchInterval cannot be negative, got %s", cfg.LaunchInterval)
	}
	return &cfg, nil
}
