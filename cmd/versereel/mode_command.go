package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"versereel/internal/daemonrun"
	"versereel/internal/ledger"
)

func newModeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "mode [random|sequential]",
		Short:     "Show or set the passage selection mode",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(ledger.ModeRandom), string(ledger.ModeSequential)},
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode ledger.Mode
			if len(args) == 1 {
				parsed, ok := ledger.ParseMode(args[0])
				if !ok {
					return fmt.Errorf("mode must be %q or %q, got %q", ledger.ModeRandom, ledger.ModeSequential, args[0])
				}
				mode = parsed
			}
			return ctx.withRuntime(cmd, func(rt *daemonrun.Runtime) error {
				out := cmd.OutOrStdout()
				if mode == "" {
					cursor, err := rt.Store.GetCursor(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Selection mode: %s\n", cursor.Mode)
					return nil
				}
				if err := rt.Store.SetMode(cmd.Context(), mode); err != nil {
					return err
				}
				fmt.Fprintf(out, "Selection mode set to %s\n", mode)
				return nil
			})
		},
	}
}
