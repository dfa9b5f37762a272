package pool

import "time"

const (
	// DefaultGracePeriod is how long a worker is given to exit after a
	// graceful termination signal before it is forcibly killed.
	DefaultGracePeriod = 60 * time.Second

	defaultTickInterval = 50 * time.Millisecond
	defaultOutputBuffer = 256
)

// Options configures a Pool. The zero value is usable: workers run without
// run-time limits, start all at once and are given DefaultGracePeriod to
// shut down.
type Options struct {
	// Monitor is invoked once per loop iteration, after all bookkeeping
	// for the iteration has been applied. It may call Stop or Restart;
	// those requests are picked up on the following iteration. Optional.
	Monitor func()

	// Log receives one line per diagnostic event (worker started, worker
	// exited, kill escalation, shutdown progress). It is invoked from the
	// supervision loop goroutine. Optional.
	Log func(string)

	// StartupSplay is the minimum spacing between starting successive
	// workers during startup and between terminating successive workers
	// during a staggered restart. Zero disables staggering.
	StartupSplay time.Duration

	// GracePeriod overrides DefaultGracePeriod when positive.
	GracePeriod time.Duration

	// TickInterval bounds the idle sleep between loop iterations and
	// therefore the supervisor's reaction latency. Defaults to 50ms.
	TickInterval time.Duration

	// CaptureOutput redirects worker stdout/stderr into the line mux
	// exposed by Output. When false workers inherit the supervisor's
	// stdout and stderr.
	CaptureOutput bool

	// OutputBuffer sizes the captured-output channel. Lines are dropped
	// (and the drops accounted for) when the consumer falls behind.
	OutputBuffer int
}

func (o Options) withDefaults() Options {
	if o.GracePeriod <= 0 {
		o.GracePeriod = DefaultGracePeriod
	}
	if o.TickInterval <= 0 {
		o.TickInterval = defaultTickInterval
	}
	if o.OutputBuffer <= 0 {
		o.OutputBuffer = defaultOutputBuffer
	}
	if o.Monitor == nil {
		o.Monitor = func() {}
	}
	if o.Log == nil {
		o.Log = func(string) {}
	}
	return o
}
