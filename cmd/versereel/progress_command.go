package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"versereel/internal/daemonrun"
	"versereel/internal/ledger"
	"versereel/internal/passages"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show the sequential cursor and catalog coverage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *daemonrun.Runtime) error {
				c := cmd.Context()
				cursor, err := rt.Store.GetCursor(c)
				if err != nil {
					return err
				}
				counts, err := rt.Store.CountsByStatus(c)
				if err != nil {
					return err
				}
				total := 0
				for _, n := range counts {
					total += n
				}

				position := cursor.Position.String()
				if !cursor.IsZero() {
					position = passages.Reference(cursor.Collection, cursor.Subunit, cursor.Item)
				}
				updated := "never"
				if !cursor.UpdatedAt.IsZero() {
					updated = cursor.UpdatedAt.Local().Format(time.DateTime)
				}
				verses := rt.Catalog.VerseCount()
				coverage := "0.0%"
				if verses > 0 {
					coverage = strconv.FormatFloat(float64(total)/float64(verses)*100, 'f', 1, 64) + "%"
				}

				rows := [][]string{
					{"Mode", string(cursor.Mode)},
					{"Cursor", position},
					{"Cursor updated", updated},
					{"Catalog", fmt.Sprintf("%s (%s)", rt.Catalog.Source(), rt.Catalog.Version())},
					{"Passages in catalog", strconv.Itoa(verses)},
					{"Items in ledger", strconv.Itoa(total)},
					{"Uploaded", strconv.Itoa(counts[ledger.StatusUploaded])},
					{"Coverage", coverage},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
				return nil
			})
		},
	}
}
