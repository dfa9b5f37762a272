//go:build windows

package pool

import (
	"errors"
	"fmt"
	"os"
)

// Windows offers no portable graceful signal for arbitrary child processes,
// so termination is best effort: the direct child is interrupted and, on
// escalation, killed. Grandchildren are not tracked.
func terminateProcess(c *child) error {
	if c.cmd == nil || c.cmd.Process == nil {
		return nil
	}
	if err := c.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal process %d: %w", c.pid, err)
	}
	return nil
}

func killProcess(c *child) error {
	if c.cmd == nil || c.cmd.Process == nil {
		return nil
	}
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %d: %w", c.pid, err)
	}
	return nil
}
