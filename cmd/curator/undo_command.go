package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/core"
	"curator/internal/store"
)

func newUndoCommand(ctx *commandContext) *cobra.Command {
	var batchFlag string

	cmd := &cobra.Command{
		Use:   "undo [transaction-id]",
		Short: "Reverse completed work from its journal records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID := strings.TrimSpace(batchFlag)
			if (len(args) == 0) == (batchID == "") {
				return errors.New("provide a transaction id or --batch, not both")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			running, err := daemonRunning(cfg)
			if err != nil {
				return err
			}
			if running {
				return errors.New("the curator daemon is running; stop it before undoing transactions")
			}

			return ctx.withJournal(func(cfg *config.Config, journal *store.Store) error {
				eng, _, err := newSessionEngine(cfg, journal)
				if err != nil {
					return err
				}
				if batchID != "" {
					return undoBatch(cmd, ctx, eng, batchID)
				}
				return undoTransaction(cmd, ctx, eng, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&batchFlag, "batch", "", "Reverse every completed transaction recorded for this batch")
	return cmd
}

func undoTransaction(cmd *cobra.Command, ctx *commandContext, eng *core.Engine, id string) error {
	report, err := eng.Undo(cmd.Context(), id)
	if err != nil {
		return err
	}
	if ctx.JSONMode() {
		return writeJSON(cmd, map[string]any{
			"transaction_id": report.TransactionID,
			"reversed":       report.Reversed,
			"total":          report.Total,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reversed %d of %d operations from transaction %s\n",
		report.Reversed, report.Total, report.TransactionID)
	return nil
}

func undoBatch(cmd *cobra.Command, ctx *commandContext, eng *core.Engine, batchID string) error {
	reports, err := eng.UndoBatch(cmd.Context(), batchID)
	if err != nil {
		return err
	}
	if ctx.JSONMode() {
		rows := make([]map[string]any, 0, len(reports))
		for _, report := range reports {
			rows = append(rows, map[string]any{
				"transaction_id": report.TransactionID,
				"reversed":       report.Reversed,
				"total":          report.Total,
			})
		}
		return writeJSON(cmd, map[string]any{
			"batch_id":     batchID,
			"transactions": rows,
		})
	}
	out := cmd.OutOrStdout()
	for _, report := range reports {
		fmt.Fprintf(out, "Reversed %d of %d operations from transaction %s\n",
			report.Reversed, report.Total, report.TransactionID)
	}
	fmt.Fprintf(out, "Batch %s: undid %d transaction(s)\n", batchID, len(reports))
	return nil
}
