package pool

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/davrell/brood/internal/metrics"
)

type childState int

const (
	childStarting childState = iota
	childRunning
	childTerminating
	childKilled
)

func (s childState) String() string {
	switch s {
	case childStarting:
		return "starting"
	case childRunning:
		return "running"
	case childTerminating:
		return "terminating"
	case childKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// child is one live worker process. Records are owned exclusively by the
// supervision loop: they are created by spawn, mutated during termination
// and deadline handling, and dropped when the exit is reaped.
type child struct {
	pid       int
	spec      SpecID
	cmd       *exec.Cmd
	startedAt time.Time

	// killDeadline is the absolute time after which the worker must be
	// forcibly killed. The zero time means no deadline is armed. Once
	// armed it only ever moves earlier.
	killDeadline time.Time

	state childState
}

// exitEvent is posted by the per-child wait goroutine once the OS reports
// the process has exited.
type exitEvent struct {
	pid  int
	code int
}

// startChild launches one worker process for the given spec and begins
// watching for its exit. The returned record is not yet tracked by the pool;
// the caller inserts it into the live set.
func (p *Pool) startChild(spec Spec) (*child, error) {
	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}

	env := os.Environ()
	for k, v := range spec.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = env

	if p.mux != nil {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("worker spec=%d stdout: %w", spec.ID, err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("worker spec=%d stderr: %w", spec.ID, err)
		}
		defer func() {
			if cmd.Process != nil {
				p.mux.add(cmd.Process.Pid, spec.ID, SourceStdout, stdout)
				p.mux.add(cmd.Process.Pid, spec.ID, SourceStderr, stderr)
			}
		}()
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker spec=%d: %w", spec.ID, err)
	}

	c := &child{
		pid:       cmd.Process.Pid,
		spec:      spec.ID,
		cmd:       cmd,
		startedAt: time.Now(),
		state:     childRunning,
	}

	go func() {
		err := cmd.Wait()
		code := 0
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			} else {
				code = -1
			}
		}
		p.exits <- exitEvent{pid: c.pid, code: code}
	}()

	metrics.IncWorkerStarts(int(spec.ID))
	p.logf("started worker pid=%d spec=%d command=%q", c.pid, spec.ID, spec.Command[0])
	return c, nil
}
