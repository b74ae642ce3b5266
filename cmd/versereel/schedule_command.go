package main

import (
	"github.com/spf13/cobra"

	"versereel/internal/daemonrun"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the scheduler in the foreground until interrupted",
		Long: "Schedule runs generation, uploads, retries, cleanup and weekly maintenance on their\n" +
			"configured triggers. Only one scheduler may run per data directory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				Logger:        logger,
				SkipPreflight: skipPreflight,
				Runtime:       ctx.runtimeOpts,
			})
		},
	}
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start without checking binaries, directories and disk space")
	return cmd
}
