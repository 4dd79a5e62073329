package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aidanmoss/forgeflow/internal/engine"
)

type profilesOptions struct {
	ConfigPath string
	StatePath  string
}

func newProfilesCmd(root *rootFlags) *cobra.Command {
	opts := profilesOptions{}

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "list the profiles declared by a workflow configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engine.Load(opts.ConfigPath, nil, opts.StatePath)
			if err != nil {
				return err
			}

			names := eng.ProfileNames()
			if len(names) == 0 {
				fmt.Fprintln(os.Stdout, "(no profiles declared)")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(os.Stdout, name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to the workflow configuration")
	cmd.Flags().StringVar(&opts.StatePath, "state", engine.DefaultStatePath, "path to the build state file")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
