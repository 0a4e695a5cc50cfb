package core

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"curator/internal/events"
	"curator/internal/logging"
	"curator/internal/policy"
	"curator/internal/services"
	"curator/internal/store"
	"curator/internal/suggest"
)

// ProcessReport summarizes one ProcessSuggestions call across all files.
type ProcessReport struct {
	AutoApproved int
	Queued       int
	Rejected     int
	Stats        policy.Stats
}

type routeKind int

const (
	routedRejected routeKind = iota
	routedAuto
	routedReview
)

// ProcessSuggestions runs raw suggestions through scoring,
// categorization, and routing. Auto-approved items enter the approval
// queue, review items the manual queue; rejections are dropped.
// Suggestions whose queue placement fails are demoted or rejected
// rather than lost silently, and every final category lands in the
// suggestion history when a journal is attached.
func (e *Engine) ProcessSuggestions(ctx context.Context, suggestions map[string][]suggest.RawSuggestion, metadata map[string]suggest.FileMetadata) (ProcessReport, error) {
	if len(suggestions) == 0 {
		return ProcessReport{}, nil
	}

	fileIDs := make([]string, 0, len(suggestions))
	for fileID := range suggestions {
		fileIDs = append(fileIDs, fileID)
	}
	sort.Strings(fileIDs)

	var report ProcessReport
	var history []store.SuggestionRecord

	for _, fileID := range fileIDs {
		raws := suggestions[fileID]
		if len(raws) == 0 {
			continue
		}
		meta, hasMeta := metadata[fileID]
		if hasMeta && meta.FileID == "" {
			meta.FileID = fileID
		}

		scored := e.scorer.Score(e.scorer.Dedupe(raws), fileContext(meta))
		result := e.filter.Categorize(scored, meta.OriginalPath)
		mergeStats(&report.Stats, result.Stats)

		for _, sugg := range result.Suggestions {
			final, kind := e.route(sugg, meta, hasMeta)
			switch kind {
			case routedAuto:
				report.AutoApproved++
			case routedReview:
				report.Queued++
			default:
				report.Rejected++
			}
			history = append(history, store.SuggestionRecord{
				FileID:             fileID,
				OriginalPath:       meta.OriginalPath,
				Value:              final.Value,
				AdjustedConfidence: final.AdjustedConfidence,
				QualityScore:       final.QualityScore,
				Category:           final.Category,
				Reason:             final.Reason,
			})
		}
	}

	if e.journal != nil && len(history) > 0 {
		if err := e.journal.RecordSuggestions(ctx, history); err != nil {
			e.logger.Warn("failed to record suggestion history", logging.Error(err))
		}
	}

	if e.bus != nil {
		e.bus.Emit(events.TypeSuggestionsProcessed, events.ProcessedPayload{
			AutoApproved: report.AutoApproved,
			Queued:       report.Queued,
			Rejected:     report.Rejected,
		})
	}
	e.logger.Info("processed suggestions",
		logging.Int("files", len(fileIDs)),
		logging.Int("auto_approved", report.AutoApproved),
		logging.Int("queued", report.Queued),
		logging.Int("rejected", report.Rejected))
	return report, nil
}

// FlushApprovalQueue dispatches up to one batch from the auto-approval
// queue immediately instead of waiting out the batch interval. Callers
// that need the queue empty keep flushing until ApprovalQueueSnapshot
// reports no entries.
func (e *Engine) FlushApprovalQueue() error {
	return e.approvals.Flush()
}

// ApprovalQueueSnapshot lists the entries waiting for the next
// auto-approval dispatch.
func (e *Engine) ApprovalQueueSnapshot() []suggest.QueueEntry {
	return e.approvals.Snapshot()
}

// route places one categorized suggestion. A recoverable approval
// refusal (a safety block, or a validation failure despite complete
// metadata) demotes the suggestion to manual review instead of
// discarding it; everything else unrecoverable becomes a rejection. The
// returned suggestion carries the category and reason the item ended up
// with.
func (e *Engine) route(sugg suggest.CategorizedSuggestion, meta suggest.FileMetadata, hasMeta bool) (suggest.CategorizedSuggestion, routeKind) {
	if sugg.Category == suggest.CategoryReject {
		return sugg, routedRejected
	}
	if !hasMeta {
		sugg.Category = suggest.CategoryReject
		sugg.Reason = "file metadata unavailable"
		sugg.CanOverride = false
		return sugg, routedRejected
	}

	if sugg.Category == suggest.CategoryAutoApprove {
		err := e.approvals.Enqueue(sugg, meta)
		if err == nil {
			return sugg, routedAuto
		}
		if errors.Is(err, services.ErrSafety) || (errors.Is(err, services.ErrValidation) && meta.Complete()) {
			demoted := sugg
			demoted.Category = suggest.CategoryManualReview
			demoted.Reason = err.Error()
			if _, addErr := e.reviews.Add(demoted, meta); addErr == nil {
				return demoted, routedReview
			}
		}
		sugg.Category = suggest.CategoryReject
		sugg.Reason = err.Error()
		return sugg, routedRejected
	}

	if _, err := e.reviews.Add(sugg, meta); err != nil {
		sugg.Category = suggest.CategoryReject
		sugg.Reason = err.Error()
		return sugg, routedRejected
	}
	return sugg, routedReview
}

// mergeStats folds one categorization's statistics into a running
// total, re-deriving the weighted average and effectiveness.
func mergeStats(total *policy.Stats, add policy.Stats) {
	if add.Total == 0 {
		return
	}
	prevTotal := total.Total
	total.Total += add.Total
	total.AutoApproved += add.AutoApproved
	total.ManualReview += add.ManualReview
	total.Rejected += add.Rejected
	for i := range add.Histogram {
		total.Histogram[i] += add.Histogram[i]
	}
	total.AverageConfidence = (total.AverageConfidence*float64(prevTotal) + add.AverageConfidence*float64(add.Total)) / float64(total.Total)
	total.Effectiveness = float64(total.AutoApproved+total.Rejected) / float64(total.Total)
}

func fileContext(meta suggest.FileMetadata) suggest.FileContext {
	base := filepath.Base(meta.OriginalPath)
	return suggest.FileContext{
		OriginalName: base,
		Extension:    strings.TrimPrefix(filepath.Ext(base), "."),
		Size:         meta.Size,
		ParentDir:    filepath.Dir(meta.OriginalPath),
	}
}
