package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/davrell/brood/internal/config"
)

func newCheckCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the pool file and print the worker roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.Load(*ctx.poolFile)
			if err != nil {
				return err
			}

			name := doc.Pool.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pool %s: %d worker specs, splay=%s, grace=%s\n",
				name, len(doc.Workers), doc.Pool.Splay.Duration, doc.Pool.GracePeriod.Duration)

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Name", "Count", "Command", "Max Run Time")
			for _, w := range doc.Workers {
				maxRun := "unlimited"
				if w.MaxRunTime.Duration > 0 {
					maxRun = w.MaxRunTime.Duration.String()
				}
				table.Append(w.Name, strconv.Itoa(w.Replicas()), strings.Join(w.Command, " "), maxRun)
			}
			table.Render()
			return nil
		},
	}
	return cmd
}
