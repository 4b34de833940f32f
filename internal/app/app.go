package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/specialistvlad/poolsweep/internal/config"
	"github.com/specialistvlad/poolsweep/internal/executor"
	"github.com/specialistvlad/poolsweep/internal/metrics"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	launcher executor.Launcher
	metrics  *metrics.Sweep
	now      func() time.Time

	ctx        context.Context
	httpServer *http.Server
}

// Option customizes an App.
type Option func(*App)

// WithLauncher replaces the process launcher built from the sweep's engine
// command.
func WithLauncher(l executor.Launcher) Option {
	return func(a *App) { a.launcher = l }
}

// WithLogWriter sends log output to w instead of the default writer.
func WithLogWriter(w io.Writer) Option {
	return func(a *App) { a.logW = w }
}

// WithClock overrides the time source used for manifest timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// NewApp is the constructor for the main application. Loading the sweep is
// deferred to Run, so construction never fails.
//
// Logs go to outW, except in a dry run, where outW carries the manifest and
// logs go to stderr.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) *App {
	a := &App{
		outW:    outW,
		logW:    outW,
		config:  cfg,
		loader:  loader,
		metrics: metrics.NewSweep(),
		now:     time.Now,
		ctx:     context.Background(),
	}
	if cfg.DryRun {
		a.logW = os.Stderr
	}
	for _, opt := range opts {
		opt(a)
	}

	a.logger = newLogger(cfg.LogLevel, cfg.LogFormat, a.logW)
	a.logger.Debug("Logger configured successfully.")
	return a
}

// Metrics returns the sweep collectors. This is primarily for testing.
func (a *App) Metrics() *metrics.Sweep {
	return a.metrics
}
