package executor

import (
	"time"

	"curator/internal/suggest"
)

// TxStatus is the lifecycle state of a transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxExecuting TxStatus = "executing"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
)

// OpStatus is the outcome of one operation inside a transaction.
type OpStatus string

const (
	OpPending    OpStatus = "pending"
	OpApplied    OpStatus = "applied"
	OpFailed     OpStatus = "failed"
	OpRolledBack OpStatus = "rolled_back"
	OpSkipped    OpStatus = "skipped"
)

// OperationResult records the outcome of one operation. BackupPath is
// set when the operation created a backup copy before changing anything.
// An operation that stays OpApplied inside a failed transaction could
// not be rolled back and still holds its change on disk.
type OperationResult struct {
	ID         string
	Seq        int
	Operation  suggest.FileOperation
	Status     OpStatus
	BackupPath string
	Err        error
	ExecutedAt time.Time
}

// Result is the full outcome of one transaction. Err carries the first
// failure; RollbackErrs collects compensation failures that followed it.
type Result struct {
	TransactionID string
	Status        TxStatus
	Operations    []OperationResult
	Err           error
	RollbackErrs  []error
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Completed reports whether every operation applied cleanly.
func (r *Result) Completed() bool {
	return r != nil && r.Status == TxCompleted
}

// Applied counts operations that ended in the applied state.
func (r *Result) Applied() int {
	if r == nil {
		return 0
	}
	count := 0
	for _, op := range r.Operations {
		if op.Status == OpApplied {
			count++
		}
	}
	return count
}

// RolledBack counts operations whose compensation succeeded.
func (r *Result) RolledBack() int {
	if r == nil {
		return 0
	}
	count := 0
	for _, op := range r.Operations {
		if op.Status == OpRolledBack {
			count++
		}
	}
	return count
}
