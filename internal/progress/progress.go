// Package progress reports sweep lifecycle events to interested observers:
// the log, the metrics collectors and optionally a socket.io dashboard.
package progress

import (
	"context"
	"time"

	"github.com/specialistvlad/poolsweep/internal/ctxlog"
)

// Kind identifies a sweep event.
type Kind string

const (
	SweepStarted        Kind = "sweep_started"
	ExperimentSkipped   Kind = "experiment_skipped"
	ExperimentStarted   Kind = "experiment_started"
	ExperimentSucceeded Kind = "experiment_succeeded"
	ExperimentFailed    Kind = "experiment_failed"
	ExperimentAborted   Kind = "experiment_aborted"
	SweepFinished       Kind = "sweep_finished"
	SweepAborted        Kind = "sweep_aborted"
)

// Event is a single progress notification. Fields that do not apply to an
// event's kind are left zero.
type Event struct {
	Kind     Kind      `json:"kind"`
	RunID    string    `json:"run_id,omitempty"`
	Key      string    `json:"key,omitempty"`
	Slot     int       `json:"slot"`
	ExitCode int       `json:"exit_code,omitempty"`
	Error    string    `json:"error,omitempty"`
	Total    int       `json:"total,omitempty"`
	Time     time.Time `json:"time"`
}

// Reporter receives progress events. Implementations must be safe for
// concurrent use and must not block the caller for long.
type Reporter interface {
	Report(ctx context.Context, ev Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, ev Event)

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, ev Event) { f(ctx, ev) }

// Nop discards every event.
var Nop Reporter = ReporterFunc(func(context.Context, Event) {})

// Multi fans every event out to each reporter in order. Nil reporters are
// skipped.
func Multi(reporters ...Reporter) Reporter {
	var rs []Reporter
	for _, r := range reporters {
		if r != nil {
			rs = append(rs, r)
		}
	}
	return ReporterFunc(func(ctx context.Context, ev Event) {
		for _, r := range rs {
			r.Report(ctx, ev)
		}
	})
}

// Stamped sets ev.Time to now when it is unset.
func Stamped(ev Event) Event {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	return ev
}

// LogReporter writes events to the logger carried in the context. The run id
// is expected to be attached to that logger already.
type LogReporter struct{}

// Report implements Reporter.
func (LogReporter) Report(ctx context.Context, ev Event) {
	logger := ctxlog.FromContext(ctx)
	switch ev.Kind {
	case SweepStarted:
		logger.Info("🚀 Starting sweep...", "experiments", ev.Total)
	case ExperimentStarted:
		logger.Info("Experiment started.", "key", ev.Key, "slot", ev.Slot)
	case ExperimentSucceeded:
		logger.Info("✅ Experiment finished.", "key", ev.Key, "slot", ev.Slot)
	case ExperimentFailed:
		logger.Error("Experiment failed.", "key", ev.Key, "slot", ev.Slot, "exit_code", ev.ExitCode, "error", ev.Error)
	case ExperimentAborted:
		logger.Warn("Experiment terminated.", "key", ev.Key, "slot", ev.Slot)
	case SweepFinished:
		logger.Info("🏁 Sweep finished.", "experiments", ev.Total)
	case SweepAborted:
		logger.Error("💥 Sweep aborted.", "error", ev.Error)
	default:
		logger.Debug("Progress event.", "kind", string(ev.Kind), "key", ev.Key)
	}
}
