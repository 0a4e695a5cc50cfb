package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/store"
)

type historyRow struct {
	Value      string  `json:"value"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Quality    float64 `json:"quality"`
	Reason     string  `json:"reason,omitempty"`
	Recorded   string  `json:"recorded"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <file-id>",
		Short: "Show recorded suggestion outcomes for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(cfg *config.Config, journal *store.Store) error {
				records, err := journal.SuggestionsForFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				rows := make([]historyRow, 0, len(records))
				for _, rec := range records {
					rows = append(rows, historyRow{
						Value:      rec.Value,
						Category:   string(rec.Category),
						Confidence: rec.AdjustedConfidence,
						Quality:    rec.QualityScore,
						Reason:     rec.Reason,
						Recorded:   rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					})
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, rows)
				}

				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintf(out, "No suggestion history for %s\n", args[0])
					return nil
				}
				if path := records[0].OriginalPath; path != "" {
					fmt.Fprintf(out, "File: %s (%s)\n", args[0], filepath.Base(path))
				}
				tableRows := make([][]string, 0, len(rows))
				for _, row := range rows {
					tableRows = append(tableRows, []string{
						row.Value, row.Category,
						formatConfidence(row.Confidence), formatConfidence(row.Quality),
						row.Reason, row.Recorded,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Suggested", "Category", "Confidence", "Quality", "Reason", "Recorded"},
					tableRows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
