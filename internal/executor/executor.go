// Package executor defines the contract for running a sweep's experiments
// and the process launcher used to start them.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/poolsweep/internal/experiment"
)

// ErrExperimentFailed is matched by every error caused by an experiment
// exiting unsuccessfully.
var ErrExperimentFailed = errors.New("experiment failed")

// Executor runs experiment records to completion or until one fails.
type Executor interface {
	Execute(ctx context.Context, records []experiment.Record) (*Summary, error)
}

// SlotState is the lifecycle state of one concurrency slot.
type SlotState int

const (
	Empty SlotState = iota
	Running
	Succeeded
	Failed
)

func (s SlotState) String() string {
	switch s {
	case Empty:
		return "empty"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("SlotState(%d)", int(s))
}

// Summary lists experiment keys by outcome.
type Summary struct {
	Succeeded []string
	// Failed holds the experiments that exited unsuccessfully on their own
	// or could not be started.
	Failed []string
	// Aborted holds the experiments force-terminated after another failed.
	Aborted []string
	// NotStarted holds the experiments never scheduled.
	NotStarted []string
}

// Started is the number of experiments that were launched.
func (s *Summary) Started() int {
	return len(s.Succeeded) + len(s.Failed) + len(s.Aborted)
}

// Total is the number of experiments the executor was given.
func (s *Summary) Total() int {
	return s.Started() + len(s.NotStarted)
}

// ExperimentError reports an experiment that exited unsuccessfully.
type ExperimentError struct {
	Key string
	// ExitCode is -1 when the process did not report one, e.g. when it was
	// killed by a signal or could not be started.
	ExitCode int
	Err      error
}

func (e *ExperimentError) Error() string {
	return fmt.Sprintf("experiment %s failed (exit code %d): %v", e.Key, e.ExitCode, e.Err)
}

// Unwrap lets errors.Is match both ErrExperimentFailed and the cause.
func (e *ExperimentError) Unwrap() []error {
	return []error{ErrExperimentFailed, e.Err}
}

// ExitCode extracts a process exit code from err: 0 for nil, the reported
// code when err carries one, and -1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}
