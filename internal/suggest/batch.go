package suggest

import (
	"strings"
	"time"
)

// OperationStatus is the lifecycle of a single batch operation.
type OperationStatus string

const (
	OperationPending    OperationStatus = "pending"
	OperationProcessing OperationStatus = "processing"
	OperationCompleted  OperationStatus = "completed"
	OperationFailed     OperationStatus = "failed"
)

// BatchOperation is one executable unit owned by exactly one batch group.
type BatchOperation struct {
	ID         string
	Type       OperationType
	FileID     string
	SourcePath string
	TargetPath string
	Confidence float64
	Priority   Priority
	Status     OperationStatus
	Error      string
}

// FileOp converts the operation into the executor-level shape.
func (o BatchOperation) FileOp(createBackup bool) FileOperation {
	return FileOperation{
		Type:         o.Type,
		SourcePath:   o.SourcePath,
		TargetPath:   o.TargetPath,
		CreateBackup: createBackup || o.Type.Destructive(),
	}
}

// BatchType partitions batches into user-initiated and automatic work.
type BatchType string

const (
	BatchInteractive BatchType = "interactive"
	BatchBackground  BatchType = "background"
)

// ParseBatchType converts a string into a known BatchType.
func ParseBatchType(value string) (BatchType, bool) {
	normalized := BatchType(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case BatchInteractive, BatchBackground:
		return normalized, true
	default:
		return "", false
	}
}

// BatchStatus is the lifecycle of a batch group.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
	BatchCancelled  BatchStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchCompleted, BatchFailed, BatchCancelled:
		return true
	default:
		return false
	}
}

// Progress aggregates operation outcomes for a batch group. SuccessRate is
// the percentage of finished operations that succeeded.
type Progress struct {
	Total       int
	Completed   int
	Failed      int
	SuccessRate float64
}

// BatchGroup owns its operations exclusively: once grouped, an operation is
// never shared with or moved to another group.
type BatchGroup struct {
	ID         string
	Operations []BatchOperation
	Type       BatchType
	Priority   int
	Status     BatchStatus
	Progress   Progress
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// RefreshProgress recomputes the progress aggregate from operation statuses.
func (g *BatchGroup) RefreshProgress() {
	progress := Progress{Total: len(g.Operations)}
	for _, op := range g.Operations {
		switch op.Status {
		case OperationCompleted:
			progress.Completed++
		case OperationFailed:
			progress.Failed++
		}
	}
	if done := progress.Completed + progress.Failed; done > 0 {
		progress.SuccessRate = float64(progress.Completed) / float64(done) * 100
	}
	g.Progress = progress
}

// Clone returns a deep copy safe to hand across component boundaries.
func (g BatchGroup) Clone() BatchGroup {
	cp := g
	if len(g.Operations) > 0 {
		cp.Operations = make([]BatchOperation, len(g.Operations))
		copy(cp.Operations, g.Operations)
	}
	if g.StartedAt != nil {
		started := *g.StartedAt
		cp.StartedAt = &started
	}
	if g.FinishedAt != nil {
		finished := *g.FinishedAt
		cp.FinishedAt = &finished
	}
	return cp
}
