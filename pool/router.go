package pool

import (
	"os"
	"os/signal"
	"syscall"
)

// routeSignals installs the supervisor-side signal router for the duration
// of Run. Interrupt and terminate request a stop, with every receipt
// counting toward kill escalation; hangup requests a staggered restart.
// The handler goroutine only mutates the atomic request flags — all real
// work happens on the next loop iteration.
func (p *Pool) routeSignals() func() {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case sig := <-ch:
				if sig == syscall.SIGHUP {
					if !p.stopRequested.Load() {
						p.restartRequested.Store(true)
					}
					continue
				}
				p.stopSignals.Add(1)
				p.stopRequested.Store(true)
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
