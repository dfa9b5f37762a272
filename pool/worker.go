package pool

import (
	"os"
	"os/signal"
	"syscall"
)

// ForwardSignals installs the worker-process side of the signal router:
// interrupt, terminate and hangup signals are forwarded verbatim to the
// supplied handler instead of being acted on. Worker binaries built on this
// module call it at startup; none of the supervisor's stop or restart logic
// ever runs inside a worker. The returned function uninstalls the
// forwarding.
func ForwardSignals(handler func(os.Signal)) func() {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case sig := <-ch:
				handler(sig)
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}
