package events

import "time"

// Type enumerates every event the pipeline publishes. Subscribers switch on
// it rather than string-matching ad hoc labels.
type Type string

const (
	TypeBatchQueued    Type = "batch-queued"
	TypeBatchStarted   Type = "batch-started"
	TypeBatchProgress  Type = "batch-progress"
	TypeBatchCompleted Type = "batch-completed"
	TypeBatchFailed    Type = "batch-failed"
	TypeBatchCancelled Type = "batch-cancelled"

	TypeOperationStarted   Type = "operation-started"
	TypeOperationCompleted Type = "operation-completed"
	TypeOperationFailed    Type = "operation-failed"

	TypeQueueCapacity         Type = "queue-capacity"
	TypeSuggestionsProcessed  Type = "suggestions-processed"
	TypeReviewDecision        Type = "review-decision"
	TypeTransactionRolledBack Type = "transaction-rolled-back"
)

// Event is a single pipeline occurrence. Payload holds one of the typed
// payload structs below depending on Type.
type Event struct {
	Type      Type
	Payload   any
	Timestamp time.Time
}

// BatchPayload accompanies the batch-* events.
type BatchPayload struct {
	BatchID   string
	BatchType string
	Priority  int
	Total     int
	Completed int
	Failed    int
}

// OperationPayload accompanies the operation-* events.
type OperationPayload struct {
	OperationID string
	BatchID     string
	Operation   string
	SourcePath  string
	TargetPath  string
	Error       string
}

// CapacityPayload accompanies queue-capacity events.
type CapacityPayload struct {
	Queue    string
	Size     int
	Capacity int
}

// ProcessedPayload accompanies suggestions-processed events.
type ProcessedPayload struct {
	AutoApproved int
	Queued       int
	Rejected     int
}

// ReviewPayload accompanies review-decision events.
type ReviewPayload struct {
	EntryID  string
	Decision string
	Actor    string
	Override bool
}

// RollbackPayload accompanies transaction-rolled-back events.
type RollbackPayload struct {
	TransactionID string
	Applied       int
	RolledBack    int
	Errors        int
}
