//go:build !windows

package pool

import (
	"errors"
	"fmt"
	"syscall"
)

// terminateProcess delivers a graceful termination signal to the worker's
// process group. A worker that already exited is not an error; the pending
// exit will be reaped on a later iteration.
func terminateProcess(c *child) error {
	if err := syscall.Kill(-c.pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("signal process group %d: %w", c.pid, err)
	}
	return nil
}

// killProcess forcibly kills the worker's process group.
func killProcess(c *child) error {
	if err := syscall.Kill(-c.pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill process group %d: %w", c.pid, err)
	}
	return nil
}
