package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"curator/internal/clock"
	"curator/internal/config"
	"curator/internal/events"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/store"
	"curator/internal/suggest"
)

const component = "review"

// Queue holds suggestions waiting for a human decision. It is the only
// writer of its entries; every read hands out deep copies so callers
// can inspect results without holding the queue still.
type Queue struct {
	mu        sync.Mutex
	logger    *slog.Logger
	bus       *events.Bus
	journal   *store.Store
	clk       clock.Clock
	entries   map[string]*suggest.ReviewEntry
	order     []string
	maxSize   int
	batchSize int
	retention time.Duration
}

// New builds a review queue bounded and batched per the configuration.
// The journal and bus may be nil; overrides are then not persisted and
// decisions not broadcast.
func New(cfg *config.Config, journal *store.Store, bus *events.Bus, logger *slog.Logger) (*Queue, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "config is required", nil)
	}
	return &Queue{
		logger:    logging.NewComponentLogger(logger, component),
		bus:       bus,
		journal:   journal,
		clk:       clock.NewReal(),
		entries:   make(map[string]*suggest.ReviewEntry),
		maxSize:   cfg.Review.MaxQueueSize,
		batchSize: cfg.Review.BatchSize,
		retention: time.Duration(cfg.Review.RetentionDays) * 24 * time.Hour,
	}, nil
}

// Add enqueues a manual-review suggestion and returns its entry ID.
// Suggestions in any other category are refused. At capacity, the
// oldest reviewed entries are evicted before the oldest pending ones:
// decided work is expendable before undecided work.
func (q *Queue) Add(sugg suggest.CategorizedSuggestion, meta suggest.FileMetadata) (string, error) {
	if sugg.Category != suggest.CategoryManualReview {
		return "", services.Wrap(services.ErrValidation, component, "add",
			fmt.Sprintf("category %s does not belong in the review queue", sugg.Category), nil)
	}

	q.mu.Lock()
	evicted := q.evictLocked(1)
	entry := &suggest.ReviewEntry{
		ID:         uuid.NewString(),
		Suggestion: sugg,
		Metadata:   meta,
		AddedAt:    q.clk.Now(),
		Status:     suggest.ReviewPending,
		Priority:   sugg.AdjustedConfidence,
	}
	q.entries[entry.ID] = entry
	q.order = append(q.order, entry.ID)
	size := len(q.entries)
	q.mu.Unlock()

	if evicted > 0 {
		q.logger.Warn("review queue at capacity, evicted oldest entries",
			logging.Int("evicted", evicted),
			logging.Int("size", size),
			logging.Int("capacity", q.maxSize))
		q.emit(events.TypeQueueCapacity, events.CapacityPayload{
			Queue:    component,
			Size:     size,
			Capacity: q.maxSize,
		})
	}
	q.logger.Debug("entry queued for review",
		logging.String(logging.FieldEntryID, entry.ID),
		logging.String(logging.FieldFileID, meta.FileID),
		logging.Float64("priority", entry.Priority))
	return entry.ID, nil
}

// evictLocked frees room for incoming entries, reviewed-first then
// oldest-pending, and reports how many entries were dropped.
func (q *Queue) evictLocked(incoming int) int {
	evicted := 0
	for len(q.entries)+incoming > q.maxSize {
		victim := q.oldestLocked(suggest.ReviewReviewed)
		if victim == "" {
			victim = q.oldestLocked(suggest.ReviewPending)
		}
		if victim == "" {
			break
		}
		q.removeLocked(victim)
		evicted++
	}
	return evicted
}

func (q *Queue) oldestLocked(status suggest.ReviewStatus) string {
	for _, id := range q.order {
		if entry, ok := q.entries[id]; ok && entry.Status == status {
			return id
		}
	}
	return ""
}

func (q *Queue) removeLocked(id string) {
	delete(q.entries, id)
	for i, existing := range q.order {
		if existing == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}

// Entry returns a copy of the identified entry.
func (q *Queue) Entry(id string) (suggest.ReviewEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.entries[id]
	if !ok {
		return suggest.ReviewEntry{}, false
	}
	return entry.Clone(), true
}

// Pending lists undecided entries, filtered and sorted per the options.
func (q *Queue) Pending(opts ListOptions) []suggest.ReviewEntry {
	q.mu.Lock()
	matched := make([]suggest.ReviewEntry, 0, len(q.order))
	for _, id := range q.order {
		entry := q.entries[id]
		if entry.Status != suggest.ReviewPending {
			continue
		}
		if !matchesFilters(entry, opts) {
			continue
		}
		matched = append(matched, entry.Clone())
	}
	q.mu.Unlock()

	sortEntries(matched, opts)
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched
}

// NextBatch returns the highest-priority pending entries, at most the
// configured review batch size.
func (q *Queue) NextBatch() []suggest.ReviewEntry {
	return q.Pending(ListOptions{SortBy: SortByPriority, Limit: q.batchSize})
}

// Decide records a verdict on a pending entry. The reason is mandatory
// and the entry must not have been decided before; changing a decision
// afterwards goes through Override.
func (q *Queue) Decide(id string, value suggest.DecisionValue, reason, actor string) error {
	if err := checkDecision(value, reason); err != nil {
		return err
	}

	q.mu.Lock()
	entry, ok := q.entries[id]
	if !ok {
		q.mu.Unlock()
		return services.Wrap(services.ErrNotFound, component, "decide",
			fmt.Sprintf("no review entry %s", id), nil)
	}
	if entry.Status != suggest.ReviewPending {
		q.mu.Unlock()
		return services.Wrap(services.ErrContract, component, "decide",
			fmt.Sprintf("entry %s is already %s", id, entry.Status), nil)
	}
	q.decideLocked(entry, value, reason, actor)
	q.mu.Unlock()

	q.emitDecision(id, value, actor, false)
	q.logger.Info("review decision recorded",
		logging.String(logging.FieldEntryID, id),
		logging.String("decision", string(value)),
		logging.String("actor", actor))
	return nil
}

func (q *Queue) decideLocked(entry *suggest.ReviewEntry, value suggest.DecisionValue, reason, actor string) {
	entry.Status = suggest.ReviewReviewed
	entry.Decision = &suggest.Decision{
		Value:     value,
		Reason:    reason,
		Actor:     actor,
		DecidedAt: q.clk.Now(),
	}
}

// DecideBulk applies one verdict across many entries. Entries that
// cannot be decided are reported individually; the rest still go
// through. It returns the applied count and the per-entry failures.
func (q *Queue) DecideBulk(ids []string, value suggest.DecisionValue, reason, actor string) (int, map[string]error) {
	applied := 0
	failures := make(map[string]error)
	for _, id := range ids {
		if err := q.Decide(id, value, reason, actor); err != nil {
			failures[id] = err
			continue
		}
		applied++
	}
	if len(failures) == 0 {
		return applied, nil
	}
	return applied, failures
}

// Override replaces an entry's decision, appending an audit record and
// persisting it through the journal. On a still-pending entry it acts
// as the first decision and leaves no audit record, since nothing was
// overridden. The in-memory change stands even if persisting the audit
// record fails; the error is returned so callers know the trail is
// incomplete.
func (q *Queue) Override(ctx context.Context, id string, value suggest.DecisionValue, reason, actor string) error {
	if err := checkDecision(value, reason); err != nil {
		return err
	}

	q.mu.Lock()
	entry, ok := q.entries[id]
	if !ok {
		q.mu.Unlock()
		return services.Wrap(services.ErrNotFound, component, "override",
			fmt.Sprintf("no review entry %s", id), nil)
	}
	if entry.Status == suggest.ReviewPending {
		q.decideLocked(entry, value, reason, actor)
		q.mu.Unlock()

		q.emitDecision(id, value, actor, false)
		q.logger.Info("review decision recorded",
			logging.String(logging.FieldEntryID, id),
			logging.String("decision", string(value)),
			logging.String("actor", actor))
		return nil
	}

	original := entry.Decision.Value
	override := suggest.ReviewOverride{
		OriginalDecision: original,
		NewDecision:      value,
		Reason:           reason,
		Actor:            actor,
		Timestamp:        q.clk.Now(),
	}
	entry.Overrides = append(entry.Overrides, override)
	entry.Decision = &suggest.Decision{
		Value:     value,
		Reason:    reason,
		Actor:     actor,
		DecidedAt: override.Timestamp,
	}
	q.mu.Unlock()

	q.emitDecision(id, value, actor, true)
	q.logger.Info("review decision overridden",
		logging.String(logging.FieldEntryID, id),
		logging.String("original", string(original)),
		logging.String("decision", string(value)),
		logging.String("actor", actor))

	if q.journal != nil {
		if err := q.journal.RecordAudit(ctx, store.AuditRecord{
			EntryID:          id,
			OriginalDecision: string(original),
			NewDecision:      string(value),
			Reason:           reason,
			Actor:            actor,
			CreatedAt:        override.Timestamp,
		}); err != nil {
			logging.ErrorWithContext(q.logger, "failed to persist override audit record", "audit_write_failed",
				logging.Error(err),
				logging.String(logging.FieldEntryID, id),
				logging.String(logging.FieldErrorHint, "the override applied but the audit trail is missing this record"))
			return services.Wrap(services.ErrExecution, component, "override", "persist audit record", err)
		}
	}
	return nil
}

func checkDecision(value suggest.DecisionValue, reason string) error {
	switch value {
	case suggest.DecisionApproved, suggest.DecisionRejected:
	default:
		return services.Wrap(services.ErrValidation, component, "decide",
			fmt.Sprintf("unknown decision %q", value), nil)
	}
	if strings.TrimSpace(reason) == "" {
		return services.Wrap(services.ErrValidation, component, "decide", "a reason is required", nil)
	}
	return nil
}

// Approved lists reviewed entries whose current decision approves them,
// in arrival order, for hand-off to batch execution.
func (q *Queue) Approved() []suggest.ReviewEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []suggest.ReviewEntry
	for _, id := range q.order {
		entry := q.entries[id]
		if entry.Approved() {
			out = append(out, entry.Clone())
		}
	}
	return out
}

// RemoveProcessed drops entries whose operations have been executed and
// reports how many were present.
func (q *Queue) RemoveProcessed(ids []string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	for _, id := range ids {
		if _, ok := q.entries[id]; ok {
			q.removeLocked(id)
			removed++
		}
	}
	return removed
}

// Cleanup drops reviewed entries whose decision is older than the
// retention window and reports how many were removed. A zero retention
// disables cleanup.
func (q *Queue) Cleanup() int {
	if q.retention <= 0 {
		return 0
	}
	cutoff := q.clk.Now().Add(-q.retention)

	q.mu.Lock()
	var expired []string
	for _, id := range q.order {
		entry := q.entries[id]
		if entry.Status != suggest.ReviewReviewed {
			continue
		}
		decided := entry.AddedAt
		if entry.Decision != nil {
			decided = entry.Decision.DecidedAt
		}
		if decided.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		q.removeLocked(id)
	}
	q.mu.Unlock()

	if len(expired) > 0 {
		q.logger.Info("expired reviewed entries removed",
			logging.Int("removed", len(expired)))
	}
	return len(expired)
}

// Size reports how many entries the queue currently holds.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Counts reports how many entries are pending and reviewed.
func (q *Queue) Counts() (pending, reviewed int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range q.entries {
		if entry.Status == suggest.ReviewPending {
			pending++
		} else {
			reviewed++
		}
	}
	return pending, reviewed
}

func (q *Queue) emit(eventType events.Type, payload any) {
	if q.bus == nil {
		return
	}
	q.bus.Emit(eventType, payload)
}

func (q *Queue) emitDecision(id string, value suggest.DecisionValue, actor string, override bool) {
	q.emit(events.TypeReviewDecision, events.ReviewPayload{
		EntryID:  id,
		Decision: string(value),
		Actor:    actor,
		Override: override,
	})
}
