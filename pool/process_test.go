package pool

import (
	"context"
	stdruntime "runtime"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if stdruntime.GOOS == "windows" {
		t.Skip("process tests skipped on windows")
	}
}

func TestRealWorkersAreReplacedOnExit(t *testing.T) {
	skipOnWindows(t)

	var p *Pool
	snapshots := make(chan Stats, 1)
	p = New(Options{
		TickInterval: 10 * time.Millisecond,
		GracePeriod:  time.Second,
		Monitor: func() {
			select {
			case snapshots <- p.stats:
			default:
			}
		},
	})

	if _, err := p.Register([]string{"/bin/sh", "-c", "sleep 0.05"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := p.Register([]string{"/bin/sh", "-c", "sleep 0.05"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Run(context.Background())
	}()

	// Workers exit on their own every 50ms; the pool must keep replacing
	// them.
	deadline := time.After(5 * time.Second)
	for {
		var stats Stats
		select {
		case stats = <-snapshots:
		case <-deadline:
			t.Fatalf("workers were not replaced in time")
		}
		if stats.Starts >= 6 && stats.Exits >= 4 {
			break
		}
	}

	p.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("pool did not stop in time")
	}
}

func TestRealWorkerIgnoringTermIsForceKilled(t *testing.T) {
	skipOnWindows(t)

	p := New(Options{
		TickInterval: 10 * time.Millisecond,
		GracePeriod:  100 * time.Millisecond,
	})

	if _, err := p.Register([]string{"/bin/sh", "-c", `trap "" TERM; sleep 30`}); err != nil {
		t.Fatalf("register: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Run(context.Background())
	}()

	// Give the shell a moment to install its trap before stopping.
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	p.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("worker ignoring TERM was not force-killed")
	}

	elapsed := time.Since(start)
	if elapsed < 100*time.Millisecond {
		t.Fatalf("worker reaped after %s, before the grace period", elapsed)
	}
	if p.Stats().ForceKills != 1 {
		t.Fatalf("force kills = %d, want 1", p.Stats().ForceKills)
	}
}

func TestRealWorkerMaxRunTime(t *testing.T) {
	skipOnWindows(t)

	p := New(Options{
		TickInterval: 10 * time.Millisecond,
		GracePeriod:  time.Second,
	})

	if _, err := p.Register([]string{"/bin/sh", "-c", "sleep 30"}, WithMaxRunTime(100*time.Millisecond)); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx)
	}()

	// The worker never exits on its own, so every cycle is a forced kill
	// roughly 100ms after its start.
	time.Sleep(700 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("pool did not stop in time")
	}

	stats := p.Stats()
	if stats.ForceKills < 3 {
		t.Fatalf("force kills = %d, want at least 3 over 700ms with a 100ms limit", stats.ForceKills)
	}
	if stats.Starts < 4 {
		t.Fatalf("starts = %d, want at least 4", stats.Starts)
	}
}

func TestCaptureOutputDeliversWorkerLines(t *testing.T) {
	skipOnWindows(t)

	p := New(Options{
		TickInterval:  10 * time.Millisecond,
		GracePeriod:   time.Second,
		CaptureOutput: true,
	})

	if _, err := p.Register([]string{"/bin/sh", "-c", "echo hello from worker; sleep 30"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Run(context.Background())
	}()

	var got OutputLine
	select {
	case got = <-p.Output():
	case <-time.After(5 * time.Second):
		t.Fatalf("no output line received")
	}
	if got.Text != "hello from worker" {
		t.Fatalf("output line = %q, want %q", got.Text, "hello from worker")
	}
	if got.Source != SourceStdout {
		t.Fatalf("output source = %q, want %q", got.Source, SourceStdout)
	}
	if got.PID == 0 {
		t.Fatalf("output line missing pid")
	}

	p.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("pool did not stop in time")
	}

	// The mux closes once all worker streams have drained.
	for range p.Output() {
	}
}
