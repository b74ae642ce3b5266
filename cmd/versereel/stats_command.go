package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"versereel/internal/daemonrun"
	"versereel/internal/ledger"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show daily activity, status counts and failure totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			return ctx.withRuntime(cmd, func(rt *daemonrun.Runtime) error {
				c := cmd.Context()
				out := cmd.OutOrStdout()

				daily, err := rt.Store.RecentStats(c, days)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(daily))
				for _, d := range daily {
					rows = append(rows, []string{
						d.Date,
						strconv.Itoa(d.ItemsGenerated),
						strconv.Itoa(d.ItemsUploaded),
						formatSeconds(d.TotalDuration),
						strconv.Itoa(d.Errors),
					})
				}
				fmt.Fprintf(out, "Last %d days\n", days)
				if len(rows) == 0 {
					fmt.Fprintln(out, "No activity recorded")
				} else {
					fmt.Fprintln(out, renderTable([]string{"Date", "Generated", "Uploaded", "Duration", "Errors"}, rows, 1, 2, 3, 4))
				}

				counts, err := rt.Store.CountsByStatus(c)
				if err != nil {
					return err
				}
				statusRows := make([][]string, 0, len(counts))
				for _, status := range ledger.AllStatuses() {
					statusRows = append(statusRows, []string{string(status), strconv.Itoa(counts[status])})
				}
				fmt.Fprintln(out, renderTable([]string{"Status", "Items"}, statusRows, 1))

				processing, err := rt.Store.ProcessingStats(c, rt.Config.Retry.MaxRetries)
				if err != nil {
					return err
				}
				cursor, err := rt.Store.GetCursor(c)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Total", "Failed", "Retryable", "Permanently failed", "Mode"},
					[][]string{{
						strconv.Itoa(processing.Total),
						strconv.Itoa(processing.Failed),
						strconv.Itoa(processing.Retryable),
						strconv.Itoa(processing.PermanentlyFailed),
						string(cursor.Mode),
					}},
					0, 1, 2, 3,
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Number of days of history to show")
	return cmd
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 1, 64) + "s"
}
