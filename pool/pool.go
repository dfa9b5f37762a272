package pool

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/davrell/brood/internal/metrics"
)

// killAllThreshold is the number of stop signals after which the pool stops
// waiting for graceful exits and kills every remaining worker outright.
const killAllThreshold = 5

// Pool supervises one live worker process per registered spec.
type Pool struct {
	opts Options

	specs []Spec

	started atomic.Bool

	// Request flags are the only state shared with signal delivery and
	// the public control surface; everything else belongs to the loop.
	stopRequested    atomic.Bool
	restartRequested atomic.Bool
	stopSignals      atomic.Int32

	exits chan exitEvent
	mux   *outputMux

	// Indirection points for tests.
	spawn   func(Spec) (*child, error)
	sigTerm func(*child) error
	sigKill func(*child) error

	// Loop-owned state. Mutated only by the goroutine running Run.
	children       map[int]*child
	startQueue     []SpecID
	restartQueue   []int
	nextCheck      time.Time
	lastStagger    time.Time
	stopApplied    bool
	killAllApplied bool
	ctxCancelled   bool
	launchErr      error
	stats          Stats
}

// Stats are cumulative counters maintained by the supervision loop. They are
// only safe to read from the Monitor callback or after Run has returned.
type Stats struct {
	Live         int
	Starts       int
	Exits        int
	Terminations int
	ForceKills   int
}

// New constructs a pool. Workers are registered with Register and supervised
// by Run.
func New(opts Options) *Pool {
	p := &Pool{
		opts:  opts.withDefaults(),
		exits: make(chan exitEvent, 64),
	}
	if p.opts.CaptureOutput {
		p.mux = newOutputMux(p.opts.OutputBuffer)
	}
	p.spawn = p.startChild
	p.sigTerm = terminateProcess
	p.sigKill = killProcess
	return p
}

// Output returns the captured worker output stream. It is nil unless
// CaptureOutput was set; the channel is closed after Run returns.
func (p *Pool) Output() <-chan OutputLine {
	if p.mux == nil {
		return nil
	}
	return p.mux.out
}

// Stop requests a graceful shutdown. The first request causes the loop to
// send a termination signal to every live worker and arm its kill deadline;
// subsequent requests are no-ops. Safe to call from any goroutine.
func (p *Pool) Stop() {
	p.stopRequested.Store(true)
}

// Restart requests a staggered restart of all current workers. Ignored while
// a stop is in progress. Safe to call from any goroutine.
func (p *Pool) Restart() {
	if p.stopRequested.Load() {
		return
	}
	p.restartRequested.Store(true)
}

// Wait runs the pool until a stop has been requested and no workers remain.
func (p *Pool) Wait() error {
	return p.Run(context.Background())
}

// Stats returns the loop's counters. See the Stats type for when reads are
// safe.
func (p *Pool) Stats() Stats {
	return p.stats
}

// Run starts every registered worker and supervises the pool until a stop
// has been requested and the last worker has been reaped. Cancelling ctx is
// equivalent to calling Stop. The returned error is nil except when the pool
// was misconfigured or a worker could not be created, which is fatal for the
// whole pool.
func (p *Pool) Run(ctx context.Context) error {
	if len(p.specs) == 0 {
		return ErrNoWorkers
	}
	if !p.started.CompareAndSwap(false, true) {
		return ErrPoolRunning
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stopRouting := p.routeSignals()
	defer stopRouting()

	p.children = make(map[int]*child, len(p.specs))
	p.startQueue = make([]SpecID, 0, len(p.specs))
	for _, spec := range p.specs {
		p.startQueue = append(p.startQueue, spec.ID)
	}

	for {
		p.reapOne()
		if p.stopApplied && len(p.children) == 0 {
			break
		}
		p.idle(ctx)
		now := time.Now()
		p.applyStop(now)
		p.applyRestart()
		p.drainQueues(now)
		p.checkDeadlines(time.Now())
		p.opts.Monitor()
	}

	if p.mux != nil {
		p.mux.close()
	}
	p.logf("pool stopped")
	return p.launchErr
}

// reapOne consumes at most one pending worker exit. The replacement is
// started in the same iteration the exit is observed, unless a stop is in
// progress.
func (p *Pool) reapOne() {
	select {
	case ev := <-p.exits:
		c, ok := p.children[ev.pid]
		if !ok {
			return
		}
		delete(p.children, ev.pid)
		p.stats.Exits++
		p.stats.Live = len(p.children)
		metrics.SetLiveWorkers(len(p.children))
		metrics.ObserveWorkerRuntime(time.Since(c.startedAt))
		p.logf("worker pid=%d spec=%d exited status=%d state=%s", ev.pid, c.spec, ev.code, c.state)
		if !p.stopApplied && !p.stopRequested.Load() {
			p.launch(c.spec)
		}
	default:
	}
}

// idle sleeps one tick. Context cancellation counts as a stop request; once
// observed, the loop falls back to plain timed sleeps so the shutdown drain
// does not busy-spin on the closed Done channel.
func (p *Pool) idle(ctx context.Context) {
	if p.ctxCancelled {
		time.Sleep(p.opts.TickInterval)
		return
	}
	timer := time.NewTimer(p.opts.TickInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		p.ctxCancelled = true
		p.stopRequested.Store(true)
	case <-timer.C:
	}
}

// applyStop consumes the stop and escalation flags. The graceful broadcast
// happens exactly once; escalation kills whatever is still alive.
func (p *Pool) applyStop(now time.Time) {
	if p.stopRequested.Load() && !p.stopApplied {
		p.stopApplied = true
		p.startQueue = nil
		p.restartQueue = nil
		p.logf("stop requested: terminating %d workers", len(p.children))
		for _, c := range p.children {
			p.terminateChild(c, now)
		}
	}
	if p.stopApplied && !p.killAllApplied && p.stopSignals.Load() >= killAllThreshold {
		p.killAllApplied = true
		p.logf("stop escalated after %d signals: killing %d workers", p.stopSignals.Load(), len(p.children))
		for _, c := range p.children {
			p.forceKill(c)
		}
	}
}

// applyRestart snapshots the live set into the restart queue. Workers
// started after the snapshot are not part of the batch.
func (p *Pool) applyRestart() {
	if !p.restartRequested.CompareAndSwap(true, false) {
		return
	}
	if p.stopApplied || p.stopRequested.Load() {
		return
	}
	pids := make([]int, 0, len(p.children))
	for pid := range p.children {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	p.restartQueue = append(p.restartQueue, pids...)
	metrics.IncRestarts()
	p.logf("restart requested: cycling %d workers", len(pids))
}

// drainQueues performs pending start and restart work. Without a splay the
// queues drain immediately; with one, at most one action is taken per splay
// interval so a large pool does not start or retire all at once.
func (p *Pool) drainQueues(now time.Time) {
	if p.stopApplied {
		return
	}

	if p.opts.StartupSplay <= 0 {
		for _, id := range p.startQueue {
			if p.stopRequested.Load() {
				break
			}
			p.launch(id)
		}
		p.startQueue = nil
		for _, pid := range p.restartQueue {
			// The worker may have exited since it was queued; only
			// signal ones that are still live.
			if c, ok := p.children[pid]; ok {
				p.terminateChild(c, now)
			}
		}
		p.restartQueue = nil
		return
	}

	if !p.lastStagger.IsZero() && now.Sub(p.lastStagger) < p.opts.StartupSplay {
		return
	}
	if len(p.startQueue) > 0 {
		id := p.startQueue[0]
		p.startQueue = p.startQueue[1:]
		p.launch(id)
		p.lastStagger = now
		return
	}
	if len(p.restartQueue) > 0 {
		pid := p.restartQueue[0]
		p.restartQueue = p.restartQueue[1:]
		if c, ok := p.children[pid]; ok {
			p.terminateChild(c, now)
			p.lastStagger = now
		}
	}
}

// launch starts one worker for the spec. Inability to create processes is
// fatal for the whole pool: the supervisor cannot fulfil its contract, so it
// stops everything it still manages.
func (p *Pool) launch(id SpecID) {
	spec := p.specs[int(id)]
	c, err := p.spawn(spec)
	if err != nil {
		if p.launchErr == nil {
			p.launchErr = err
		}
		p.logf("fatal: %v", err)
		p.stopRequested.Store(true)
		return
	}
	if c.startedAt.IsZero() {
		c.startedAt = time.Now()
	}
	p.children[c.pid] = c
	p.stats.Starts++
	p.stats.Live = len(p.children)
	metrics.SetLiveWorkers(len(p.children))
	if spec.MaxRunTime > 0 {
		p.armDeadline(c, c.startedAt, spec.MaxRunTime)
	}
}

// terminateChild asks a worker to exit gracefully and arms its kill
// deadline. A worker already terminating or killed is left alone, so the
// deadline is armed at most once per termination attempt.
func (p *Pool) terminateChild(c *child, now time.Time) {
	if c.state == childTerminating || c.state == childKilled {
		return
	}
	if err := p.sigTerm(c); err != nil {
		p.logf("terminate worker pid=%d: %v", c.pid, err)
	}
	c.state = childTerminating
	p.stats.Terminations++
	p.logf("terminating worker pid=%d spec=%d grace=%s", c.pid, c.spec, p.opts.GracePeriod)
	p.armDeadline(c, now, p.opts.GracePeriod)
	// Re-evaluate deadlines on the very next iteration.
	p.nextCheck = now
}

// forceKill escalates to an unconditional kill. The record stays in the live
// set until the exit is reaped.
func (p *Pool) forceKill(c *child) {
	if c.state == childKilled {
		return
	}
	if err := p.sigKill(c); err != nil {
		p.logf("kill worker pid=%d: %v", c.pid, err)
	}
	c.state = childKilled
	p.stats.ForceKills++
	metrics.IncForceKills()
	p.logf("killed worker pid=%d spec=%d", c.pid, c.spec)
}

// armDeadline sets the child's kill deadline, keeping the earliest of any
// previously armed deadline, and lowers the pool's next check time to match.
func (p *Pool) armDeadline(c *child, now time.Time, delay time.Duration) {
	deadline := now.Add(delay)
	if c.killDeadline.IsZero() || deadline.Before(c.killDeadline) {
		c.killDeadline = deadline
	}
	if p.nextCheck.IsZero() || c.killDeadline.Before(p.nextCheck) {
		p.nextCheck = c.killDeadline
	}
}

// checkDeadlines force-kills workers whose kill deadline has passed and
// recomputes the next check time as the earliest remaining deadline. The
// scan only runs when due.
func (p *Pool) checkDeadlines(now time.Time) {
	if p.nextCheck.IsZero() || now.Before(p.nextCheck) {
		return
	}
	var next time.Time
	for _, c := range p.children {
		if c.killDeadline.IsZero() {
			continue
		}
		if !c.killDeadline.After(now) {
			p.forceKill(c)
			continue
		}
		if next.IsZero() || c.killDeadline.Before(next) {
			next = c.killDeadline
		}
	}
	p.nextCheck = next
}

func (p *Pool) logf(format string, args ...any) {
	p.opts.Log(fmt.Sprintf(format, args...))
}
