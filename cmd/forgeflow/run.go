package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aidanmoss/forgeflow/internal/engine"
	"github.com/aidanmoss/forgeflow/internal/executor"
	"github.com/aidanmoss/forgeflow/internal/logger"
)

type runOptions struct {
	ConfigPath string
	Profile    string
	Step       string
	StatePath  string
	Workers    int
}

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "load a workflow, plan, and execute the outdated steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if root.verbose {
				level = "debug"
			}
			log, err := logger.New(logger.Options{Level: level, HumanReadable: true, Writer: os.Stdout})
			if err != nil {
				return err
			}

			eng, err := engine.Load(opts.ConfigPath, nil, opts.StatePath)
			if err != nil {
				return err
			}

			if opts.Profile != "" && !eng.HasProfile(opts.Profile) {
				return fmt.Errorf("unknown profile or profile group %q", opts.Profile)
			}

			eng.SetMaxWorkers(opts.Workers)

			ok, _, err := eng.Execute(opts.Step, opts.Profile, log, progressCallback(log))
			if err != nil {
				return err
			}
			if !ok {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to the workflow configuration")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "profile or profile group to apply")
	cmd.Flags().StringVar(&opts.Step, "step", "", "final workflow step to build (defaults to DEFAULT_WORKFLOW_STEP)")
	cmd.Flags().StringVar(&opts.StatePath, "state", engine.DefaultStatePath, "path to the build state file")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "override GENERAL.MAX_WORKERS")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func progressCallback(log *logger.Logger) executor.StatusFunc {
	return func(kind executor.StatusKind, current, total int, state executor.StatusState) {
		log.Debug(fmt.Sprintf("%s %d/%d %s", kind, current, total, state))
	}
}
