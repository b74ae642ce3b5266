package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"versereel/internal/config"
	"versereel/internal/daemonrun"
	"versereel/internal/ledger"
	"versereel/internal/scheduler"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "upload <id>",
		Short: "Upload a ready video now or at a scheduled time",
		Long: "Upload publishes a ready item immediately. With --at the upload is queued for the\n" +
			"scheduler instead; --at accepts RFC3339 or HH:MM (next occurrence in scheduler.timezone).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			if strings.TrimSpace(at) != "" {
				// Queuing only writes a schedule entry, so it works while the
				// scheduler runs.
				return ctx.withRuntime(cmd, func(rt *daemonrun.Runtime) error {
					when, err := parseUploadTime(at, rt.Config.Scheduler, time.Now())
					if err != nil {
						return err
					}
					entry, err := rt.Manager.ScheduleUpload(cmd.Context(), id, when)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Item %d scheduled for upload at %s (entry %d)\n",
						id, entry.ScheduledAt.Format(time.RFC3339), entry.ID)
					return nil
				})
			}
			return ctx.withPipeline(cmd, func(rt *daemonrun.Runtime) error {
				item, err := rt.Manager.Upload(cmd.Context(), id)
				if err != nil {
					return err
				}
				printUploaded(cmd.OutOrStdout(), item)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Schedule instead of uploading now (RFC3339 or HH:MM)")
	cmd.AddCommand(newUploadNextCommand(ctx))
	return cmd
}

func newUploadNextCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Upload the oldest ready video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(rt *daemonrun.Runtime) error {
				item, err := rt.Manager.UploadNext(cmd.Context())
				if err != nil {
					return err
				}
				if item == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No ready items to upload")
					return nil
				}
				printUploaded(cmd.OutOrStdout(), item)
				return nil
			})
		},
	}
}

func printUploaded(out io.Writer, item *ledger.WorkItem) {
	fmt.Fprintf(out, "Uploaded %s (item %d)\n", item.NaturalKey, item.ID)
	if item.RemoteURL != "" {
		fmt.Fprintf(out, "URL: %s\n", item.RemoteURL)
	} else if item.RemoteID != "" {
		fmt.Fprintf(out, "Remote ID: %s\n", item.RemoteID)
	}
}

// parseUploadTime accepts RFC3339, or HH:MM resolved to its next occurrence
// after now in the scheduler timezone.
func parseUploadTime(value string, sc config.Scheduler, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	clock, err := config.ParseClock(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at must be RFC3339 or HH:MM, got %q", value)
	}
	loc, err := sc.Location()
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduler.timezone: %w", err)
	}
	return scheduler.DailyAt(clock, loc).Next(now), nil
}
