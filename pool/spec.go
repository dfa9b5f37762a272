package pool

import (
	"errors"
	"fmt"
	"time"
)

// SpecID identifies a registered worker spec. IDs are assigned sequentially
// at registration time and remain stable for the lifetime of the pool.
type SpecID int

// Spec describes one class of worker: the command to execute and the policy
// applied to every process started from it. Specs are immutable once
// registered; the registry is append-only and is never consulted for
// duplicates, so registering the same command twice yields two independent
// worker slots.
type Spec struct {
	ID         SpecID
	Command    []string
	Env        map[string]string
	Dir        string
	MaxRunTime time.Duration
}

// SpecOption customises a worker spec at registration time.
type SpecOption func(*Spec)

// WithEnv sets additional environment variables for workers started from the
// spec. They are appended to the supervisor's own environment.
func WithEnv(env map[string]string) SpecOption {
	return func(s *Spec) {
		if len(env) == 0 {
			return
		}
		s.Env = make(map[string]string, len(env))
		for k, v := range env {
			s.Env[k] = v
		}
	}
}

// WithDir sets the working directory for workers started from the spec.
func WithDir(dir string) SpecOption {
	return func(s *Spec) {
		s.Dir = dir
	}
}

// WithMaxRunTime bounds the wall-clock lifetime of each worker started from
// the spec. A worker still running after the limit is forcibly killed and
// replaced. Zero (the default) disables the limit.
func WithMaxRunTime(d time.Duration) SpecOption {
	return func(s *Spec) {
		s.MaxRunTime = d
	}
}

var (
	// ErrPoolRunning is returned by Register once Run has been called.
	ErrPoolRunning = errors.New("pool already running")

	// ErrNoWorkers is returned by Run when nothing was registered.
	ErrNoWorkers = errors.New("no workers registered")
)

// Register appends a worker spec to the pool's roster and returns its id.
// It must be called before Run; the roster is immutable afterwards.
func (p *Pool) Register(command []string, opts ...SpecOption) (SpecID, error) {
	if p.started.Load() {
		return 0, ErrPoolRunning
	}
	if len(command) == 0 || command[0] == "" {
		return 0, fmt.Errorf("register worker: empty command")
	}

	spec := Spec{
		ID:      SpecID(len(p.specs)),
		Command: append([]string(nil), command...),
	}
	for _, opt := range opts {
		opt(&spec)
	}
	if spec.MaxRunTime < 0 {
		return 0, fmt.Errorf("register worker: negative max run time %s", spec.MaxRunTime)
	}

	p.specs = append(p.specs, spec)
	return spec.ID, nil
}
