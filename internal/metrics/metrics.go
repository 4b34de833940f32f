// Package metrics exposes sweep progress as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/poolsweep/internal/progress"
)

// Outcome label values.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeAborted   = "aborted"
	OutcomeSkipped   = "skipped"
)

// Sweep holds the collectors for one sweep on a dedicated registry. It
// implements progress.Reporter.
type Sweep struct {
	Registry *prometheus.Registry

	Experiments *prometheus.CounterVec
	Running     prometheus.Gauge
	Pending     prometheus.Gauge
	Duration    *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

// NewSweep creates the collectors and registers them, along with the Go
// and process collectors, on a fresh registry.
func NewSweep() *Sweep {
	s := &Sweep{
		Registry: prometheus.NewRegistry(),
		Experiments: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "poolsweep_experiments_total", Help: "Experiments by outcome."},
			[]string{"outcome"},
		),
		Running: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "poolsweep_experiments_running", Help: "Experiments currently running."},
		),
		Pending: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "poolsweep_experiments_pending", Help: "Experiments waiting for a free slot."},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "poolsweep_experiment_duration_seconds",
				Help:    "Wall-clock duration of finished experiments in seconds.",
				Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800},
			},
			[]string{"outcome"},
		),
		started: make(map[string]time.Time),
	}
	s.Registry.MustRegister(s.Experiments, s.Running, s.Pending, s.Duration)
	s.Registry.MustRegister(collectors.NewGoCollector())
	s.Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return s
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Sweep) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})
}

// Report implements progress.Reporter.
func (s *Sweep) Report(_ context.Context, ev progress.Event) {
	switch ev.Kind {
	case progress.SweepStarted:
		s.Pending.Set(float64(ev.Total))
	case progress.ExperimentSkipped:
		s.Experiments.WithLabelValues(OutcomeSkipped).Inc()
	case progress.ExperimentStarted:
		s.Pending.Dec()
		s.Running.Inc()
		s.mu.Lock()
		s.started[ev.Key] = ev.Time
		s.mu.Unlock()
	case progress.ExperimentSucceeded:
		s.finish(ev, OutcomeSucceeded)
	case progress.ExperimentAborted:
		s.finish(ev, OutcomeAborted)
	case progress.ExperimentFailed:
		s.finish(ev, OutcomeFailed)
	case progress.SweepFinished, progress.SweepAborted:
		s.Pending.Set(0)
	}
}

func (s *Sweep) finish(ev progress.Event, outcome string) {
	s.Experiments.WithLabelValues(outcome).Inc()

	s.mu.Lock()
	begin, ok := s.started[ev.Key]
	delete(s.started, ev.Key)
	s.mu.Unlock()

	// A launch failure was never started.
	if !ok {
		s.Pending.Dec()
		return
	}
	s.Running.Dec()
	if !begin.IsZero() && !ev.Time.IsZero() {
		s.Duration.WithLabelValues(outcome).Observe(ev.Time.Sub(begin).Seconds())
	}
}
