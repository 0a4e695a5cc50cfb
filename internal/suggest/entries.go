package suggest

import "time"

// Priority orders queued work. It derives once from adjusted confidence at
// enqueue time and never changes afterwards.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// PriorityForConfidence maps an adjusted confidence (0-100) onto a priority.
func PriorityForConfidence(adjusted float64) Priority {
	switch {
	case adjusted >= 95:
		return PriorityHigh
	case adjusted >= 85:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// QueueEntry is one auto-approved suggestion waiting for batch creation.
type QueueEntry struct {
	ID                    string
	Suggestion            CategorizedSuggestion
	Metadata              FileMetadata
	QueuedAt              time.Time
	Priority              Priority
	SafetyChecksCompleted bool
}

// ReviewStatus is the lifecycle of a manual review entry.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewReviewed ReviewStatus = "reviewed"
)

// DecisionValue is a reviewer's verdict on an entry.
type DecisionValue string

const (
	DecisionApproved DecisionValue = "approved"
	DecisionRejected DecisionValue = "rejected"
)

// Decision records a reviewer's verdict with its mandatory reason.
type Decision struct {
	Value     DecisionValue
	Reason    string
	Actor     string
	DecidedAt time.Time
}

// ReviewOverride is one audit record of a decision being replaced.
type ReviewOverride struct {
	OriginalDecision DecisionValue
	NewDecision      DecisionValue
	Reason           string
	Actor            string
	Timestamp        time.Time
}

// ReviewEntry is one suggestion awaiting or holding a human disposition.
// Priority is the adjusted confidence on a 0-100 scale. Overrides accumulate;
// the latest override's decision is reflected in Decision.
type ReviewEntry struct {
	ID         string
	Suggestion CategorizedSuggestion
	Metadata   FileMetadata
	AddedAt    time.Time
	Status     ReviewStatus
	Priority   float64
	Decision   *Decision
	Overrides  []ReviewOverride
}

// Approved reports whether the entry currently holds an approved decision.
func (e ReviewEntry) Approved() bool {
	return e.Status == ReviewReviewed && e.Decision != nil && e.Decision.Value == DecisionApproved
}

// Clone returns a deep copy safe to hand across component boundaries.
func (e ReviewEntry) Clone() ReviewEntry {
	cp := e
	if e.Decision != nil {
		decision := *e.Decision
		cp.Decision = &decision
	}
	if len(e.Overrides) > 0 {
		cp.Overrides = make([]ReviewOverride, len(e.Overrides))
		copy(cp.Overrides, e.Overrides)
	}
	if len(e.Suggestion.ValidationFlags) > 0 {
		cp.Suggestion.ValidationFlags = make([]string, len(e.Suggestion.ValidationFlags))
		copy(cp.Suggestion.ValidationFlags, e.Suggestion.ValidationFlags)
	}
	return cp
}
