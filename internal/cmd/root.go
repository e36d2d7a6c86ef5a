package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the frontlog command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "frontlog",
		Short: "Frontend log collector",
		Long: `frontlog accepts log events posted by browser clients and appends them
to daily text files, one file for all levels and one per level.

Configuration comes from FRONTLOG_* environment variables (and an optional
.env file); nested keys use a double underscore, e.g. FRONTLOG_SERVER__PORT.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newShowCmd())
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
