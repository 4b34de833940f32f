// Package localexecutor provides the local-machine implementation of
// executor.Executor: at most N experiment processes run at once, and the
// first failure terminates the whole sweep.
package localexecutor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/specialistvlad/poolsweep/internal/ctxlog"
	"github.com/specialistvlad/poolsweep/internal/executor"
	"github.com/specialistvlad/poolsweep/internal/experiment"
	"github.com/specialistvlad/poolsweep/internal/fsutil"
	"github.com/specialistvlad/poolsweep/internal/progress"
	"golang.org/x/time/rate"
)

// Options configures an Executor.
type Options struct {
	// Parallelism caps the number of concurrently running experiments.
	// Values below 1 are treated as 1.
	Parallelism int
	Launcher    executor.Launcher
	// Artifact is the file removed from every started experiment's output
	// directory once the sweep ends. Empty disables cleanup.
	Artifact string
	Reporter progress.Reporter
	// Shuffle, when set, randomizes dispatch order so long-running
	// combinations do not cluster.
	Shuffle *rand.Rand
	// LaunchInterval is the minimum delay between two process launches.
	LaunchInterval time.Duration
	// RunID is attached to progress events.
	RunID string
}

// Executor implements executor.Executor for local processes.
type Executor struct {
	opts    Options
	limiter *rate.Limiter
}

// New creates a new local executor.
func New(opts Options) executor.Executor {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.Reporter == nil {
		opts.Reporter = progress.Nop
	}
	e := &Executor{opts: opts}
	if opts.LaunchInterval > 0 {
		e.limiter = rate.NewLimiter(rate.Every(opts.LaunchInterval), 1)
	}
	return e
}

// slot is one concurrency slot, owned by the Execute goroutine.
type slot struct {
	state  executor.SlotState
	rec    experiment.Record
	proc   executor.Process
	killed bool
}

// completion is sent by a slot's waiter when its process exits.
type completion struct {
	slot int
	err  error
}

// Execute runs records until all have finished or one fails. On failure the
// remaining processes are killed, nothing further is scheduled, and the
// returned error wraps executor.ErrExperimentFailed. Cancelling ctx has the
// same effect and returns the context's error.
//
// Whatever the outcome, the artifact of every started experiment is removed
// before Execute returns.
func (e *Executor) Execute(ctx context.Context, records []experiment.Record) (*executor.Summary, error) {
	logger := ctxlog.FromContext(ctx)

	queue := make([]experiment.Record, len(records))
	copy(queue, records)
	if e.opts.Shuffle != nil {
		e.opts.Shuffle.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })
	}

	summary := &executor.Summary{}
	slots := make([]slot, min(e.opts.Parallelism, len(queue)))
	// Buffered so waiters never block, even after Execute stops listening.
	done := make(chan completion, len(slots))
	ctxDone := ctx.Done()

	var (
		started []experiment.Record
		failure error
		running int
		next    int

		// pace fires when the limiter admits the launch held by reservation.
		pacer       *time.Timer
		pace        <-chan time.Time
		reservation *rate.Reservation
	)

	logger.Debug("Executor starting.", "experiments", len(queue), "slots", len(slots))

	abort := func(cause error) {
		failure = cause
		for i := range slots {
			if slots[i].state != executor.Running || slots[i].killed {
				continue
			}
			slots[i].killed = true
			logger.Debug("Terminating experiment.", "key", slots[i].rec.Key, "slot", i)
			if err := slots[i].proc.Kill(); err != nil {
				logger.Warn("Could not terminate experiment.", "key", slots[i].rec.Key, "error", err)
			}
		}
	}

	for {
		for failure == nil && pace == nil && next < len(queue) && running < len(slots) {
			if e.limiter != nil && reservation == nil {
				r := e.limiter.Reserve()
				if d := r.Delay(); d > 0 {
					reservation = r
					pacer = time.NewTimer(d)
					pace = pacer.C
					break
				}
			}
			reservation = nil

			if err := ctx.Err(); err != nil {
				abort(fmt.Errorf("sweep interrupted: %w", err))
				break
			}

			idx := freeSlot(slots)
			rec := queue[next]
			next++

			proc, err := e.opts.Launcher.Start(ctx, rec)
			if err != nil {
				summary.Failed = append(summary.Failed, rec.Key)
				e.report(ctx, progress.Event{Kind: progress.ExperimentFailed, Key: rec.Key, Slot: idx, ExitCode: -1, Error: err.Error()})
				abort(&executor.ExperimentError{Key: rec.Key, ExitCode: -1, Err: err})
				break
			}

			started = append(started, rec)
			slots[idx] = slot{state: executor.Running, rec: rec, proc: proc}
			running++
			e.report(ctx, progress.Event{Kind: progress.ExperimentStarted, Key: rec.Key, Slot: idx})

			go func(idx int, proc executor.Process) {
				done <- completion{slot: idx, err: proc.Wait()}
			}(idx, proc)
		}

		// A pending launch is dropped once the sweep is failing.
		if failure != nil && pace != nil {
			pacer.Stop()
			reservation.Cancel()
			pace, reservation = nil, nil
		}

		if running == 0 && pace == nil {
			break
		}

		select {
		case c := <-done:
			running--
			s := &slots[c.slot]
			switch {
			case c.err == nil:
				s.state = executor.Succeeded
				summary.Succeeded = append(summary.Succeeded, s.rec.Key)
				e.report(ctx, progress.Event{Kind: progress.ExperimentSucceeded, Key: s.rec.Key, Slot: c.slot})
			case s.killed:
				s.state = executor.Failed
				summary.Aborted = append(summary.Aborted, s.rec.Key)
				e.report(ctx, progress.Event{Kind: progress.ExperimentAborted, Key: s.rec.Key, Slot: c.slot})
			default:
				s.state = executor.Failed
				code := executor.ExitCode(c.err)
				summary.Failed = append(summary.Failed, s.rec.Key)
				e.report(ctx, progress.Event{Kind: progress.ExperimentFailed, Key: s.rec.Key, Slot: c.slot, ExitCode: code, Error: c.err.Error()})
				if failure == nil {
					abort(&executor.ExperimentError{Key: s.rec.Key, ExitCode: code, Err: c.err})
				}
			}
		case <-pace:
			pace = nil
		case <-ctxDone:
			ctxDone = nil
			if failure == nil {
				abort(fmt.Errorf("sweep interrupted: %w", ctx.Err()))
			}
		}
	}

	for _, rec := range queue[next:] {
		summary.NotStarted = append(summary.NotStarted, rec.Key)
	}

	e.removeArtifacts(ctx, started)

	logger.Debug("Executor finished.",
		"succeeded", len(summary.Succeeded),
		"failed", len(summary.Failed),
		"aborted", len(summary.Aborted),
		"not_started", len(summary.NotStarted),
	)
	return summary, failure
}

// freeSlot returns a slot that is not running. Succeeded and Failed slots
// are refilled just like Empty ones.
func freeSlot(slots []slot) int {
	for i := range slots {
		if slots[i].state != executor.Running {
			return i
		}
	}
	panic("localexecutor: no free slot")
}

func (e *Executor) report(ctx context.Context, ev progress.Event) {
	ev.RunID = e.opts.RunID
	e.opts.Reporter.Report(ctx, progress.Stamped(ev))
}

// removeArtifacts deletes the artifact of every started experiment. Failures
// are logged and ignored.
func (e *Executor) removeArtifacts(ctx context.Context, started []experiment.Record) {
	if e.opts.Artifact == "" {
		return
	}
	logger := ctxlog.FromContext(ctx)
	for _, rec := range started {
		path := filepath.Join(rec.OutputDir, e.opts.Artifact)
		removed, err := fsutil.RemoveIfExists(path)
		if err != nil {
			logger.Warn("Could not remove experiment artifact.", "path", path, "error", err)
			continue
		}
		if removed {
			logger.Debug("Removed experiment artifact.", "path", path)
		}
	}
}
