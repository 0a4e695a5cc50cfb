package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/core"
	"curator/internal/ingest"
	"curator/internal/review"
	"curator/internal/store"
	"curator/internal/suggest"
)

type processOptions struct {
	fromInbox  bool
	dryRun     bool
	approveAll bool
	actor      string
}

type processResult struct {
	BatchFiles    int             `json:"batch_files"`
	Quarantined   int             `json:"quarantined,omitempty"`
	AutoApproved  int             `json:"auto_approved"`
	Queued        int             `json:"queued"`
	Rejected      int             `json:"rejected"`
	DryRun        bool            `json:"dry_run"`
	Batches       []processBatch  `json:"batches,omitempty"`
	WouldExecute  []processQueued `json:"would_execute,omitempty"`
	PendingReview []processReview `json:"pending_review,omitempty"`
}

type processBatch struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}

type processQueued struct {
	File       string  `json:"file"`
	Size       int64   `json:"size"`
	Operation  string  `json:"operation"`
	Suggested  string  `json:"suggested"`
	Confidence float64 `json:"confidence"`
}

type processReview struct {
	ID         string  `json:"id"`
	File       string  `json:"file"`
	Suggested  string  `json:"suggested"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process [batch-file ...]",
		Short: "Run suggestion batch files through the pipeline",
		Long: `Process scores, categorizes, and routes the suggestions in the given
batch files. Auto-approved suggestions execute immediately; the rest
queue for review within this run. Review entries are not retained
between runs, so pass --approve-reviews to execute them in the same
invocation, or leave low-confidence work to the daemon's inbox.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.fromInbox && len(args) == 0 {
				return errors.New("provide at least one batch file or pass --inbox")
			}
			if opts.fromInbox && len(args) > 0 {
				return errors.New("--inbox cannot be combined with explicit batch files")
			}
			if opts.dryRun && opts.fromInbox {
				return errors.New("--dry-run cannot be combined with --inbox; inbox files are archived after ingestion")
			}
			if opts.dryRun && opts.approveAll {
				return errors.New("--dry-run cannot be combined with --approve-reviews")
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
				return errors.New("the curator daemon is running; stop it first or drop batch files into the inbox")
			}

			return ctx.withJournal(func(cfg *config.Config, journal *store.Store) error {
				result, err := runProcess(cmd, cfg, journal, args, opts)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				printProcessResult(cmd, result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.fromInbox, "inbox", false, "Process every batch file waiting in the inbox")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Categorize and route without executing any file operation")
	cmd.Flags().BoolVar(&opts.approveAll, "approve-reviews", false, "Approve and execute everything routed to manual review")
	cmd.Flags().StringVar(&opts.actor, "actor", "cli", "Actor recorded on review decisions")
	return cmd
}

// countingProcessor accumulates the per-file reports the inbox scanner
// would otherwise swallow.
type countingProcessor struct {
	eng   *core.Engine
	total core.ProcessReport
}

func (p *countingProcessor) ProcessSuggestions(ctx context.Context, suggestions map[string][]suggest.RawSuggestion, metadata map[string]suggest.FileMetadata) (core.ProcessReport, error) {
	report, err := p.eng.ProcessSuggestions(ctx, suggestions, metadata)
	if err == nil {
		p.total.AutoApproved += report.AutoApproved
		p.total.Queued += report.Queued
		p.total.Rejected += report.Rejected
	}
	return report, err
}

func runProcess(cmd *cobra.Command, cfg *config.Config, journal *store.Store, args []string, opts processOptions) (*processResult, error) {
	eng, logger, err := newSessionEngine(cfg, journal)
	if err != nil {
		return nil, err
	}

	// Routing happens before Start so the approval timer cannot race
	// the queue-depth reads below; the scheduler only queues until it
	// runs.
	cmdCtx := cmd.Context()
	proc := &countingProcessor{eng: eng}
	result := &processResult{DryRun: opts.dryRun}

	if opts.fromInbox {
		scanner, err := ingest.New(cfg, proc, logger)
		if err != nil {
			return nil, err
		}
		ingested, err := scanner.Sweep(cmdCtx)
		if err != nil {
			return nil, err
		}
		_, failed := scanner.Counts()
		result.BatchFiles = ingested
		result.Quarantined = failed
	} else {
		for _, arg := range args {
			path, err := config.ExpandPath(arg)
			if err != nil {
				return nil, err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read batch file: %w", err)
			}
			suggestions, metadata, err := ingest.ParseBatch(data)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", arg, err)
			}
			if _, err := proc.ProcessSuggestions(cmdCtx, suggestions, metadata); err != nil {
				return nil, fmt.Errorf("process %s: %w", arg, err)
			}
			result.BatchFiles++
		}
	}

	result.AutoApproved = proc.total.AutoApproved
	result.Queued = proc.total.Queued
	result.Rejected = proc.total.Rejected

	if opts.dryRun {
		for _, entry := range eng.ApprovalQueueSnapshot() {
			result.WouldExecute = append(result.WouldExecute, processQueued{
				File:       filepath.Base(entry.Metadata.OriginalPath),
				Size:       entry.Metadata.Size,
				Operation:  string(entry.Metadata.Operation),
				Suggested:  entry.Suggestion.Value,
				Confidence: entry.Suggestion.AdjustedConfidence,
			})
		}
		result.PendingReview = pendingReviewRows(eng)
		return result, nil
	}

	if err := eng.Start(cmdCtx); err != nil {
		return nil, err
	}
	defer eng.Close()

	// Each flush drains at most one batch.
	for len(eng.ApprovalQueueSnapshot()) > 0 {
		if err := eng.FlushApprovalQueue(); err != nil {
			return nil, err
		}
	}

	if opts.approveAll {
		pending := eng.PendingReviews(review.ListOptions{})
		if len(pending) > 0 {
			ids := make([]string, 0, len(pending))
			for _, entry := range pending {
				ids = append(ids, entry.ID)
			}
			approved, failures := eng.ApproveReviews(ids, "approved from the command line", opts.actor)
			for id, ferr := range failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: approve %s: %v\n", id, ferr)
			}
			if approved > 0 {
				if _, err := eng.FlushApproved(); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := eng.WaitIdle(cmdCtx); err != nil {
		return nil, err
	}

	for _, group := range eng.Batches() {
		result.Batches = append(result.Batches, processBatch{
			ID:        group.ID,
			Type:      string(group.Type),
			Status:    string(group.Status),
			Total:     group.Progress.Total,
			Completed: group.Progress.Completed,
			Failed:    group.Progress.Failed,
		})
	}
	result.PendingReview = pendingReviewRows(eng)
	return result, nil
}

func pendingReviewRows(eng *core.Engine) []processReview {
	pending := eng.PendingReviews(review.ListOptions{SortBy: review.SortByPriority})
	rows := make([]processReview, 0, len(pending))
	for _, entry := range pending {
		rows = append(rows, processReview{
			ID:         entry.ID,
			File:       filepath.Base(entry.Metadata.OriginalPath),
			Suggested:  entry.Suggestion.Value,
			Confidence: entry.Suggestion.AdjustedConfidence,
			Reason:     entry.Suggestion.Reason,
		})
	}
	return rows
}

func printProcessResult(cmd *cobra.Command, result *processResult) {
	out := cmd.OutOrStdout()

	noun := "batch files"
	if result.BatchFiles == 1 {
		noun = "batch file"
	}
	fmt.Fprintf(out, "Processed %d %s\n", result.BatchFiles, noun)
	if result.Quarantined > 0 {
		fmt.Fprintf(out, "Quarantined %d (see failed/ in the inbox)\n", result.Quarantined)
	}
	fmt.Fprintf(out, "  Auto-approved: %d\n", result.AutoApproved)
	fmt.Fprintf(out, "  Review queued: %d\n", result.Queued)
	fmt.Fprintf(out, "  Rejected:      %d\n", result.Rejected)

	if result.DryRun {
		if len(result.WouldExecute) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Would execute:")
			rows := make([][]string, 0, len(result.WouldExecute))
			for _, q := range result.WouldExecute {
				rows = append(rows, []string{q.File, humanize.IBytes(uint64(q.Size)), q.Operation, q.Suggested, formatConfidence(q.Confidence)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"File", "Size", "Operation", "Suggested", "Confidence"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight},
			))
		}
		printPendingReview(cmd, result.PendingReview)
		fmt.Fprintln(out, "Dry run: nothing was executed.")
		return
	}

	if len(result.Batches) > 0 {
		fmt.Fprintln(out)
		rows := make([][]string, 0, len(result.Batches))
		for _, b := range result.Batches {
			rows = append(rows, []string{
				shortID(b.ID), b.Type, b.Status,
				strconv.Itoa(b.Total), strconv.Itoa(b.Completed), strconv.Itoa(b.Failed),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Batch", "Type", "Status", "Total", "Completed", "Failed"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
		))
	}

	printPendingReview(cmd, result.PendingReview)
}

func printPendingReview(cmd *cobra.Command, pending []processReview) {
	if len(pending) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Pending review:")
	rows := make([][]string, 0, len(pending))
	for _, r := range pending {
		rows = append(rows, []string{r.File, r.Suggested, formatConfidence(r.Confidence), r.Reason})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Suggested", "Confidence", "Reason"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintln(out, "Review entries are not retained between runs; rerun with --approve-reviews to execute them.")
}

func formatConfidence(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
