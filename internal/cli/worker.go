package cli

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/davrell/brood/pool"
)

// newWorkerCmd is a demo worker for exercising the supervisor locally:
// it heartbeats until it receives a forwarded termination signal.
func newWorkerCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Demo worker that heartbeats until told to stop",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCh := make(chan os.Signal, 1)
			uninstall := pool.ForwardSignals(func(sig os.Signal) {
				select {
				case sigCh <- sig:
				default:
				}
			})
			defer uninstall()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case sig := <-sigCh:
					if sig == syscall.SIGHUP {
						fmt.Fprintf(cmd.OutOrStdout(), "worker pid=%d ignoring %s\n", os.Getpid(), sig)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "worker pid=%d exiting on %s\n", os.Getpid(), sig)
					return nil
				case <-ticker.C:
					fmt.Fprintf(cmd.OutOrStdout(), "worker pid=%d alive\n", os.Getpid())
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Heartbeat interval")
	return cmd
}
