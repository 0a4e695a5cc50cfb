package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/store"
)

type transactionDetail struct {
	ID         string         `json:"id"`
	BatchID    string         `json:"batch_id,omitempty"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Created    string         `json:"created"`
	Finished   string         `json:"finished,omitempty"`
	Operations []operationRow `json:"operations"`
}

type operationRow struct {
	Seq        int    `json:"seq"`
	Type       string `json:"type"`
	SourcePath string `json:"source_path"`
	TargetPath string `json:"target_path,omitempty"`
	BackupPath string `json:"backup_path,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <transaction-id>",
		Short: "Show one journaled transaction with its operations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(cfg *config.Config, journal *store.Store) error {
				rec, ops, err := journal.Transaction(cmd.Context(), args[0])
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("no transaction %s", args[0])
				}
				if err != nil {
					return fmt.Errorf("transaction %s: %w", args[0], err)
				}

				detail := transactionDetail{
					ID:      rec.ID,
					BatchID: rec.BatchID,
					Status:  rec.Status,
					Error:   rec.Error,
					Created: rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				}
				if rec.FinishedAt != nil {
					detail.Finished = rec.FinishedAt.Local().Format("2006-01-02 15:04:05")
				}
				for _, op := range ops {
					detail.Operations = append(detail.Operations, operationRow{
						Seq:        op.Seq,
						Type:       string(op.Type),
						SourcePath: op.SourcePath,
						TargetPath: op.TargetPath,
						BackupPath: op.BackupPath,
						Status:     op.Status,
						Error:      op.Error,
					})
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, detail)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Transaction: %s\n", detail.ID)
				if detail.BatchID != "" {
					fmt.Fprintf(out, "Batch: %s\n", detail.BatchID)
				}
				fmt.Fprintf(out, "Status: %s\n", detail.Status)
				fmt.Fprintf(out, "Created: %s\n", detail.Created)
				if detail.Finished != "" {
					fmt.Fprintf(out, "Finished: %s\n", detail.Finished)
				}
				if detail.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", detail.Error)
				}

				if len(detail.Operations) == 0 {
					fmt.Fprintln(out, "No operations recorded")
					return nil
				}
				rows := make([][]string, 0, len(detail.Operations))
				for _, op := range detail.Operations {
					target := op.TargetPath
					if target == "" {
						target = "-"
					}
					rows = append(rows, []string{
						strconv.Itoa(op.Seq), op.Type, op.SourcePath, target, op.Status, op.Error,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Operation", "Source", "Target", "Status", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				if detail.Status == store.TxCompleted {
					fmt.Fprintf(out, "Reverse with `curator undo %s`.\n", detail.ID)
				}
				return nil
			})
		},
	}
}
