package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/store"
)

const recentTransactionLimit = 5

type statusReport struct {
	DaemonRunning bool             `json:"daemon_running"`
	ConfigPath    string           `json:"config_path"`
	ConfigExists  bool             `json:"config_exists"`
	JournalPath   string           `json:"journal_path"`
	Journal       journalSummary   `json:"journal"`
	Recent        []transactionRow `json:"recent_transactions,omitempty"`
}

type journalSummary struct {
	Transactions map[string]int `json:"transactions"`
	Operations   int            `json:"operations"`
	Suggestions  int            `json:"suggestions"`
	AuditRecords int            `json:"audit_records"`
}

type transactionRow struct {
	ID      string `json:"id"`
	BatchID string `json:"batch_id,omitempty"`
	Status  string `json:"status"`
	Created string `json:"created"`
	Error   string `json:"error,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, journal, and staging status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(cfg *config.Config, journal *store.Store) error {
				cmdCtx := cmd.Context()

				report := statusReport{
					ConfigPath:   ctx.configPath,
					ConfigExists: ctx.configExists,
					JournalPath:  journal.Path(),
				}

				running, lockErr := daemonRunning(cfg)
				report.DaemonRunning = running

				stats, err := journal.Stats(cmdCtx)
				if err != nil {
					return fmt.Errorf("journal stats: %w", err)
				}
				report.Journal = journalSummary{
					Transactions: stats.Transactions,
					Operations:   stats.Operations,
					Suggestions:  stats.Suggestions,
					AuditRecords: stats.AuditRecords,
				}

				recent, err := journal.RecentTransactions(cmdCtx, recentTransactionLimit)
				if err != nil {
					return fmt.Errorf("recent transactions: %w", err)
				}
				for _, rec := range recent {
					report.Recent = append(report.Recent, transactionRow{
						ID:      rec.ID,
						BatchID: rec.BatchID,
						Status:  rec.Status,
						Created: rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						Error:   rec.Error,
					})
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, report)
				}
				printStatusReport(cmd, report, lockErr)
				return nil
			})
		},
	}
}

func printStatusReport(cmd *cobra.Command, report statusReport, lockErr error) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("System Status", colorize) {
		fmt.Fprintln(out, line)
	}
	switch {
	case lockErr != nil:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, lockErr.Error(), colorize))
	case report.DaemonRunning:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "Running", colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, "Not running (start with `curator run`)", colorize))
	}
	if report.ConfigExists {
		fmt.Fprintln(out, renderStatusLine("Config", statusOK, report.ConfigPath, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Config", statusInfo, "Defaults in use (run `curator config init`)", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Journal", statusOK, report.JournalPath, colorize))
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Journal", colorize) {
		fmt.Fprintln(out, line)
	}
	rows := journalSummaryRows(report.Journal)
	if len(rows) == 0 {
		fmt.Fprintln(out, "Journal is empty")
	} else {
		fmt.Fprintln(out, renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Recent Transactions", colorize) {
		fmt.Fprintln(out, line)
	}
	if len(report.Recent) == 0 {
		fmt.Fprintln(out, "No transactions recorded")
		return
	}
	txRows := make([][]string, 0, len(report.Recent))
	for _, rec := range report.Recent {
		txRows = append(txRows, []string{rec.ID, rec.Status, rec.Created, rec.Error})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Transaction", "Status", "Created", "Error"},
		txRows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))
	fmt.Fprintln(out, "Use `curator show <transaction-id>` for operation detail.")
}

func journalSummaryRows(summary journalSummary) [][]string {
	var rows [][]string
	statuses := make([]string, 0, len(summary.Transactions))
	for status := range summary.Transactions {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		rows = append(rows, []string{"transactions " + status, strconv.Itoa(summary.Transactions[status])})
	}
	if summary.Operations > 0 {
		rows = append(rows, []string{"operations", strconv.Itoa(summary.Operations)})
	}
	if summary.Suggestions > 0 {
		rows = append(rows, []string{"suggestions", strconv.Itoa(summary.Suggestions)})
	}
	if summary.AuditRecords > 0 {
		rows = append(rows, []string{"audit records", strconv.Itoa(summary.AuditRecords)})
	}
	return rows
}
