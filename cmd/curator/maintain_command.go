package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/store"
)

func newMaintainCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Run one maintenance pass over the journal and retained backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(cfg *config.Config, journal *store.Store) error {
				eng, _, err := newSessionEngine(cfg, journal)
				if err != nil {
					return err
				}
				eng.Maintenance(cmd.Context())
				fmt.Fprintln(cmd.OutOrStdout(), "Maintenance pass completed")
				return nil
			})
		},
	}
}
