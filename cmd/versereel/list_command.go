package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"versereel/internal/daemonrun"
	"versereel/internal/ledger"
	"versereel/internal/passages"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]ledger.Status, 0, len(statusFlags))
			for _, raw := range statusFlags {
				for _, part := range strings.Split(raw, ",") {
					if strings.TrimSpace(part) == "" {
						continue
					}
					status, ok := ledger.ParseStatus(part)
					if !ok {
						return fmt.Errorf("unknown status %q", part)
					}
					statuses = append(statuses, status)
				}
			}
			return ctx.withRuntime(cmd, func(rt *daemonrun.Runtime) error {
				items, err := rt.Store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No work items")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						passages.Reference(item.Position.Collection, item.Position.Subunit, item.Position.Item),
						string(item.Status),
						formatSeconds(item.Duration),
						strconv.Itoa(item.RetryCount),
						item.UpdatedAt.Local().Format(time.DateTime),
						truncate(item.ErrorMessage, 48),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Passage", "Status", "Duration", "Retries", "Updated", "Error"},
					rows, 0, 3, 4,
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (pending, processing, ready, uploaded, failed)")
	return cmd
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
