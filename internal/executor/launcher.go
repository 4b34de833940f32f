package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/specialistvlad/poolsweep/internal/ctxlog"
	"github.com/specialistvlad/poolsweep/internal/experiment"
)

// Process is one running experiment.
type Process interface {
	// Wait blocks until the process exits. A non-nil error means the
	// experiment did not succeed.
	Wait() error
	// Kill forcibly terminates the process.
	Kill() error
}

// Launcher starts experiment processes.
type Launcher interface {
	Start(ctx context.Context, rec experiment.Record) (Process, error)
}

// CommandLauncher runs Command followed by the record's arguments as a child
// process. Output goes to Stdout and Stderr, defaulting to the parent's.
type CommandLauncher struct {
	Command []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Start implements Launcher.
func (l *CommandLauncher) Start(ctx context.Context, rec experiment.Record) (Process, error) {
	if len(l.Command) == 0 {
		return nil, errors.New("no engine command configured")
	}

	args := make([]string, 0, len(l.Command)-1+len(rec.Args))
	args = append(args, l.Command[1:]...)
	args = append(args, rec.Args...)

	// Not CommandContext: the executor decides when to kill.
	cmd := exec.Command(l.Command[0], args...)
	cmd.Stdout = l.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = l.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", l.Command[0], err)
	}
	ctxlog.FromContext(ctx).Debug("Engine process started.", "key", rec.Key, "pid", cmd.Process.Pid)
	return &commandProcess{cmd: cmd}, nil
}

type commandProcess struct {
	cmd *exec.Cmd
}

func (p *commandProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *commandProcess) Kill() error {
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
