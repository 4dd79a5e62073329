package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "forgeflow",
		Short:         "forgeflow plans and runs an incremental, dependency-aware shell build",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug-level logging")

	cmd.AddCommand(newPlanCmd(flags))
	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newProfilesCmd(flags))

	return cmd
}
