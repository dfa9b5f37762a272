package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

type context struct {
	poolFile *string
}

// NewRootCmd builds the brood command tree.
func NewRootCmd() *cobra.Command {
	var poolFile string

	root := &cobra.Command{
		Use:   "brood",
		Short: "Worker-pool process supervisor",
	}

	root.PersistentFlags().
		StringVarP(&poolFile, "file", "f", "pool.yaml", "Path to pool definition")

	ctx := &context{poolFile: &poolFile}
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newCheckCmd(ctx))
	root.AddCommand(newVersionCmd())
	root.AddCommand(newWorkerCmd())

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root
}

// Execute runs the CLI entrypoint. Signal handling for the supervisor is
// owned by the pool itself, so no signal context is installed here.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
