package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"versereel/internal/daemonrun"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate [count]",
		Short: "Select passages and render them into videos",
		Long: "Generate picks the next passages using the current selection mode and runs every stage.\n" +
			"Per-item failures are recorded on the item and reported in the summary.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("count must be a positive integer, got %q", args[0])
				}
				count = n
			}
			return ctx.withPipeline(cmd, func(rt *daemonrun.Runtime) error {
				summary := rt.Manager.GenerateBatch(cmd.Context(), count)
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Requested", "Successful", "Failed", "Skipped"},
					[][]string{{
						strconv.Itoa(summary.Requested),
						strconv.Itoa(summary.Successful),
						strconv.Itoa(summary.Failed),
						strconv.Itoa(summary.Skipped),
					}},
					0, 1, 2, 3,
				))
				if summary.Exhausted {
					fmt.Fprintln(out, "Selection exhausted: no passage satisfies the current constraints")
				}
				if summary.Failed > 0 {
					fmt.Fprintln(out, "Failed items can be retried with `versereel retry`")
				}
				return nil
			})
		},
	}
}
