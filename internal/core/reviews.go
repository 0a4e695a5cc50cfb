package core

import (
	"context"

	"curator/internal/logging"
	"curator/internal/review"
	"curator/internal/suggest"

	"github.com/google/uuid"
)

// PendingReviews lists entries awaiting a decision, filtered and sorted
// per opts.
func (e *Engine) PendingReviews(opts review.ListOptions) []suggest.ReviewEntry {
	return e.reviews.Pending(opts)
}

// NextReviewBatch returns the next slice of pending entries sized for
// one review session, highest priority first.
func (e *Engine) NextReviewBatch() []suggest.ReviewEntry {
	return e.reviews.NextBatch()
}

// ReviewEntry fetches a single entry by id.
func (e *Engine) ReviewEntry(id string) (suggest.ReviewEntry, bool) {
	return e.reviews.Entry(id)
}

// ApproveReviews approves the given entries in bulk. The returned map
// holds the per-entry failures; the count is how many succeeded.
func (e *Engine) ApproveReviews(ids []string, reason, actor string) (int, map[string]error) {
	return e.reviews.DecideBulk(ids, suggest.DecisionApproved, reason, actor)
}

// RejectReviews rejects the given entries in bulk.
func (e *Engine) RejectReviews(ids []string, reason, actor string) (int, map[string]error) {
	return e.reviews.DecideBulk(ids, suggest.DecisionRejected, reason, actor)
}

// ApplyOverride replaces an entry's decision and records the change in
// the audit trail.
func (e *Engine) ApplyOverride(ctx context.Context, entryID string, decision suggest.DecisionValue, reason, actor string) error {
	return e.reviews.Override(ctx, entryID, decision, reason, actor)
}

// FlushApproved turns every approved review entry into batch operations
// and submits them as one interactive batch. Deletions pass through
// here: a human approved them, which is exactly what the automatic path
// refuses to assume. Flushed entries leave the review queue only after
// the scheduler accepts the batch.
func (e *Engine) FlushApproved() ([]string, error) {
	approved := e.reviews.Approved()
	if len(approved) == 0 {
		return nil, nil
	}

	ops := make([]suggest.BatchOperation, 0, len(approved))
	ids := make([]string, 0, len(approved))
	for _, entry := range approved {
		ops = append(ops, operationFromEntry(entry))
		ids = append(ids, entry.ID)
	}

	batchIDs, err := e.scheduler.Submit(ops, suggest.BatchInteractive)
	if err != nil {
		return nil, err
	}
	removed := e.reviews.RemoveProcessed(ids)
	e.logger.Info("flushed approved reviews",
		logging.Int("entries", removed),
		logging.Int("batches", len(batchIDs)))
	return batchIDs, nil
}

func operationFromEntry(entry suggest.ReviewEntry) suggest.BatchOperation {
	return suggest.BatchOperation{
		ID:         uuid.New().String(),
		Type:       entry.Metadata.Operation,
		FileID:     entry.Metadata.FileID,
		SourcePath: entry.Metadata.OriginalPath,
		TargetPath: entry.Metadata.TargetPath,
		Confidence: entry.Priority,
		Priority:   suggest.PriorityForConfidence(entry.Priority),
		Status:     suggest.OperationPending,
	}
}
