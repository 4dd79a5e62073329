package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aidanmoss/forgeflow/internal/engine"
)

type planOptions struct {
	ConfigPath string
	Profile    string
	Step       string
	StatePath  string
}

func newPlanCmd(root *rootFlags) *cobra.Command {
	opts := planOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "load a workflow, plan a build, and print the reporter's description",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engine.Load(opts.ConfigPath, nil, opts.StatePath)
			if err != nil {
				return err
			}

			doc, err := eng.Describe(opts.Profile, opts.Step)
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, doc)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to the workflow configuration")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "profile or profile group to apply")
	cmd.Flags().StringVar(&opts.Step, "step", "", "final workflow step to plan (defaults to DEFAULT_WORKFLOW_STEP)")
	cmd.Flags().StringVar(&opts.StatePath, "state", engine.DefaultStatePath, "path to the build state file")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
