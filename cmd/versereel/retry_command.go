package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"versereel/internal/daemonrun"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var maxRetries int

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-run failed items below the retry limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(rt *daemonrun.Runtime) error {
				limit := maxRetries
				if !cmd.Flags().Changed("max") {
					limit = rt.Config.Retry.MaxRetries
				}
				if limit <= 0 {
					return fmt.Errorf("--max must be positive")
				}
				summary, err := rt.Manager.RetryFailed(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if summary.Retried == 0 {
					fmt.Fprintln(out, "No failed items below the retry limit")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Retried", "Successful", "Still failed"},
					[][]string{{
						strconv.Itoa(summary.Retried),
						strconv.Itoa(summary.Successful),
						strconv.Itoa(summary.StillFailed),
					}},
					0, 1, 2,
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&maxRetries, "max", 0, "Skip items that already failed this many times (default retry.max_retries)")
	return cmd
}
