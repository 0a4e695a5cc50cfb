package core

import (
	"context"

	"curator/internal/batch"
	"curator/internal/logging"
	"curator/internal/suggest"
)

// StageOperation hands one approved operation to the scheduler.
// High-priority operations batch immediately; the rest stay staged
// until CreateBatch groups them.
func (e *Engine) StageOperation(op suggest.BatchOperation) (string, error) {
	return e.scheduler.AddOperation(op)
}

// CreateBatch groups staged operations into batches of the given type
// and queues them. Queueing never blocks; execution happens on the
// scheduler's own goroutines.
func (e *Engine) CreateBatch(ids []string, batchType suggest.BatchType) ([]string, error) {
	return e.scheduler.CreateBatch(ids, batchType)
}

// BatchStatus returns a copy of the batch, or nil when the id is
// unknown.
func (e *Engine) BatchStatus(id string) *suggest.BatchGroup {
	group, err := e.scheduler.Batch(id)
	if err != nil {
		return nil
	}
	return &group
}

// Batches lists every known batch, newest first.
func (e *Engine) Batches() []suggest.BatchGroup {
	return e.scheduler.Batches()
}

// CancelBatch cancels a queued batch, or asks a running one to stop at
// the next operation boundary.
func (e *Engine) CancelBatch(id string) error {
	return e.scheduler.Cancel(id)
}

// StagedOperations lists operations waiting for CreateBatch.
func (e *Engine) StagedOperations() []suggest.BatchOperation {
	return e.scheduler.StagedOperations()
}

// WaitIdle blocks until no batches are waiting or running, or the
// context ends.
func (e *Engine) WaitIdle(ctx context.Context) error {
	return e.scheduler.WaitIdle(ctx)
}

// ExecutionReport summarizes one direct transaction.
type ExecutionReport struct {
	TransactionID string
	Success       bool
	Completed     int
	Errors        []string
}

// ExecuteTransaction applies operations as one all-or-nothing
// transaction, bypassing the batch queue. The transaction is journaled
// without a batch id so undo can still find it.
func (e *Engine) ExecuteTransaction(ctx context.Context, ops []suggest.FileOperation) (ExecutionReport, error) {
	res, err := e.exec.Execute(ctx, ops)
	if res == nil {
		return ExecutionReport{}, err
	}

	if e.journal != nil {
		rec, opRecs := batch.JournalRecords("", res)
		if jerr := e.journal.RecordTransaction(context.Background(), rec, opRecs); jerr != nil {
			logging.ErrorWithContext(e.logger, "failed to journal transaction", "journal_write_failed",
				logging.String(logging.FieldTransactionID, res.TransactionID),
				logging.Error(jerr),
				logging.String(logging.FieldErrorHint, "undo will not see this transaction; check the database"))
		}
	}

	report := ExecutionReport{
		TransactionID: res.TransactionID,
		Success:       res.Completed(),
		Completed:     res.Applied(),
	}
	if res.Err != nil {
		report.Errors = append(report.Errors, res.Err.Error())
	}
	for _, rbErr := range res.RollbackErrs {
		report.Errors = append(report.Errors, rbErr.Error())
	}
	return report, err
}
