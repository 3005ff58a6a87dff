package main

import (
	"fmt"

	"github.com/goliatone/go-jobportal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "jobportal",
		Short: "Job portal API server",
		Long: `jobportal serves the job portal API: local and OAuth2 sign in,
role selection, job postings and applications.

Settings are read from an optional YAML file and JOBPORTAL_* environment
variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newDBCmd(opts))
	return cmd
}
