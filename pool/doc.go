// Package pool implements a single-process worker-pool supervisor. A Pool
// maintains one live OS process per registered worker spec, replaces workers
// as they exit, and supports graceful shutdown, staggered restarts and
// per-worker run-time limits.
//
// All bookkeeping is owned by the supervision loop inside Run. The only state
// shared with other goroutines is a handful of atomic request flags, so the
// loop never takes locks on its hot path. Stop and Restart are safe to call
// from any goroutine, including re-entrantly from the Monitor callback.
//
// Full process-group signalling is only available on Unix, where each worker
// is started in its own process group and termination signals reach the whole
// group. On Windows the pool falls back to terminating the direct child only.
package pool
