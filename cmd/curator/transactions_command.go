package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/store"
)

func newTransactionsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var status string

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List journaled transactions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(cfg *config.Config, journal *store.Store) error {
				var (
					records []store.TransactionRecord
					err     error
				)
				switch strings.ToLower(strings.TrimSpace(status)) {
				case "":
					records, err = journal.RecentTransactions(cmd.Context(), limit)
				case store.TxCompleted, store.TxFailed, store.TxUndone:
					records, err = journal.TransactionsByStatus(cmd.Context(), strings.ToLower(strings.TrimSpace(status)))
				default:
					return fmt.Errorf("unknown status %q (expected %s, %s, or %s)",
						status, store.TxCompleted, store.TxFailed, store.TxUndone)
				}
				if err != nil {
					return err
				}

				rows := make([]transactionRow, 0, len(records))
				for _, rec := range records {
					rows = append(rows, transactionRow{
						ID:      rec.ID,
						BatchID: rec.BatchID,
						Status:  rec.Status,
						Created: rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						Error:   rec.Error,
					})
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, rows)
				}

				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No transactions recorded")
					return nil
				}
				tableRows := make([][]string, 0, len(rows))
				for _, row := range rows {
					tableRows = append(tableRows, []string{row.ID, shortID(row.BatchID), row.Status, row.Created, row.Error})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Transaction", "Batch", "Status", "Created", "Error"},
					tableRows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of transactions to list")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (completed, failed, undone)")
	return cmd
}
