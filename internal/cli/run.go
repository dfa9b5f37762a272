package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/davrell/brood/internal/cliutil"
	"github.com/davrell/brood/internal/config"
	"github.com/davrell/brood/internal/metrics"
	"github.com/davrell/brood/pool"
)

func newRunCmd(ctx *context) *cobra.Command {
	var (
		splay         time.Duration
		grace         time.Duration
		metricsListen string
		capture       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Supervise the workers defined in the pool file",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.Load(*ctx.poolFile)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("splay") {
				splay = doc.Pool.Splay.Duration
			}
			if !cmd.Flags().Changed("grace") {
				grace = doc.Pool.GracePeriod.Duration
			}

			stdout := os.Stdout
			human := cliutil.IsTerminal(stdout)
			enc := json.NewEncoder(stdout)
			var outMu sync.Mutex
			emit := func(rec cliutil.Record) {
				outMu.Lock()
				defer outMu.Unlock()
				if human {
					fmt.Fprintln(stdout, cliutil.HumanFormat(rec))
					return
				}
				cliutil.Encode(enc, os.Stderr, rec)
			}

			p := pool.New(pool.Options{
				Log: func(msg string) {
					emit(cliutil.NewRecord("supervisor", msg))
				},
				StartupSplay:  splay,
				GracePeriod:   grace,
				CaptureOutput: capture,
			})

			if err := registerWorkers(p, doc); err != nil {
				return err
			}

			if metricsListen != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
				srv := &http.Server{Addr: metricsListen, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						emit(cliutil.NewRecord("supervisor", fmt.Sprintf("error: metrics listener: %v", err)))
					}
				}()
				defer srv.Close()
			}

			if out := p.Output(); out != nil {
				go func() {
					for line := range out {
						level := "info"
						if line.Source == pool.SourceStderr {
							level = "warn"
						}
						emit(cliutil.Record{
							Timestamp: line.Time,
							Level:     level,
							Message:   line.Text,
							Source:    fmt.Sprintf("%s/pid=%d", line.Source, line.PID),
						})
					}
				}()
			}

			return p.Run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&splay, "splay", 0, "Minimum spacing between successive worker starts and staggered terminations")
	cmd.Flags().DurationVar(&grace, "grace", pool.DefaultGracePeriod, "Time a worker is given to exit after a termination signal")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Address to serve Prometheus metrics on (disabled when empty)")
	cmd.Flags().BoolVar(&capture, "capture-output", false, "Capture worker stdout/stderr into the supervisor log stream")

	return cmd
}

func registerWorkers(p *pool.Pool, doc *config.File) error {
	for _, w := range doc.Workers {
		var opts []pool.SpecOption
		if len(w.Env) > 0 {
			opts = append(opts, pool.WithEnv(w.Env))
		}
		if w.Dir != "" {
			opts = append(opts, pool.WithDir(w.Dir))
		}
		if w.MaxRunTime.Duration > 0 {
			opts = append(opts, pool.WithMaxRunTime(w.MaxRunTime.Duration))
		}
		for i := 0; i < w.Replicas(); i++ {
			if _, err := p.Register(w.Command, opts...); err != nil {
				return fmt.Errorf("worker %s: %w", w.Name, err)
			}
		}
	}
	return nil
}
