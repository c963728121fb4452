package main

import (
	"github.com/spf13/cobra"

	"Jobash/internal/jobash"
)

func rootCmd() *cobra.Command {
	opts := jobash.Options{}

	c := &cobra.Command{
		Use:          "jobash",
		Short:        "Interactive shell with background jobs and pipelines",
		Example:      "jobash --config ~/.config/jobash/config.yaml --debug",
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return jobash.Run(opts)
		},
	}

	c.Flags().StringVar(&opts.ConfigPath, "config", "", "Path to config file")
	c.Flags().BoolVar(&opts.Debug, "debug", false, "Enable debug logs")

	return c
}
