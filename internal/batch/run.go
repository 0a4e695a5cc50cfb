package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"curator/internal/events"
	"curator/internal/executor"
	"curator/internal/logging"
	"curator/internal/store"
	"curator/internal/suggest"
)

func (s *Scheduler) runBatch(ctx context.Context, group *suggest.BatchGroup) {
	defer s.wg.Done()
	defer s.release(group.ID)

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if group.Status != suggest.BatchPending {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	group.Status = suggest.BatchProcessing
	group.StartedAt = &now
	s.cancels[group.ID] = cancel
	ops := make([]suggest.BatchOperation, len(group.Operations))
	copy(ops, group.Operations)
	batchType := group.Type
	snapshot := group.Clone()
	s.mu.Unlock()

	s.emitGroup(events.TypeBatchStarted, snapshot)
	s.logger.Info("batch started",
		logging.String(logging.FieldBatchID, group.ID),
		logging.String("type", string(batchType)),
		logging.Int("operations", len(ops)))

	if !s.validateBatch(group, ops) {
		return
	}

	switch batchType {
	case suggest.BatchInteractive:
		s.runInteractive(batchCtx, group, ops)
	default:
		s.runBackground(batchCtx, group, ops)
	}
}

// validateBatch checks every operation before anything executes. Any
// failure fails the whole group with nothing touched on disk.
func (s *Scheduler) validateBatch(group *suggest.BatchGroup, ops []suggest.BatchOperation) bool {
	invalid := make(map[int]error)
	for i, op := range ops {
		if err := s.exec.Validate(op.FileOp(s.createBackups)); err != nil {
			invalid[i] = err
		}
	}
	if len(invalid) == 0 {
		return true
	}

	s.mu.Lock()
	for i := range group.Operations {
		if err, ok := invalid[i]; ok {
			group.Operations[i].Status = suggest.OperationFailed
			group.Operations[i].Error = err.Error()
		}
	}
	s.mu.Unlock()

	logging.ErrorWithContext(s.logger, "batch validation failed", "batch_validation_failed",
		logging.String(logging.FieldBatchID, group.ID),
		logging.Int("invalid_operations", len(invalid)),
		logging.String(logging.FieldErrorHint, "inspect the per-operation errors in batch status"))
	s.finish(group)
	return false
}

// runBackground executes each operation as its own single-operation
// transaction, bounded by the adaptive concurrency limit. One failed
// operation never stops the others.
func (s *Scheduler) runBackground(ctx context.Context, group *suggest.BatchGroup, ops []suggest.BatchOperation) {
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(s.effectiveLimit(len(ops)))

	for i := range ops {
		grp.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			s.operationStarted(group, i)
			res, err := s.exec.ExecuteOne(gctx, ops[i].FileOp(s.createBackups))
			s.recordResult(group.ID, res)
			s.operationFinished(group, i, err)
			return nil
		})
	}
	_ = grp.Wait()
	s.finish(group)
}

// runInteractive executes the whole group as one transaction: the
// operations apply in order and the first failure rolls back everything
// already applied. Operation outcomes surface once the transaction
// settles, since it cannot report progress mid-flight.
func (s *Scheduler) runInteractive(ctx context.Context, group *suggest.BatchGroup, ops []suggest.BatchOperation) {
	fileOps := make([]suggest.FileOperation, len(ops))
	for i, op := range ops {
		fileOps[i] = op.FileOp(s.createBackups)
	}

	res, _ := s.exec.Execute(ctx, fileOps)
	s.recordResult(group.ID, res)

	var finished []suggest.BatchOperation
	s.mu.Lock()
	if res != nil {
		for i, opRes := range res.Operations {
			if i >= len(group.Operations) {
				break
			}
			op := &group.Operations[i]
			switch opRes.Status {
			case executor.OpApplied:
				op.Status = suggest.OperationCompleted
			case executor.OpFailed:
				op.Status = suggest.OperationFailed
				if opRes.Err != nil {
					op.Error = opRes.Err.Error()
				}
			case executor.OpRolledBack:
				op.Status = suggest.OperationFailed
				op.Error = "rolled back after a later operation failed"
			}
			if op.Status == suggest.OperationCompleted || op.Status == suggest.OperationFailed {
				finished = append(finished, *op)
			}
		}
	}
	batchID := group.ID
	s.mu.Unlock()

	for _, op := range finished {
		eventType := events.TypeOperationCompleted
		if op.Status == suggest.OperationFailed {
			eventType = events.TypeOperationFailed
		}
		s.emitOperation(eventType, batchID, op)
	}
	s.finish(group)
}

// effectiveLimit derives the per-batch worker count from the batch
// size, the share of the concurrency budget left by other active
// batches, and the host resource hint. The hint only lowers the limit.
func (s *Scheduler) effectiveLimit(batchSize int) int {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active < 1 {
		active = 1
	}
	limit := (s.maxConcurrent + active - 1) / active
	if batchSize < limit {
		limit = batchSize
	}
	if s.monitor != nil {
		if hint := s.monitor.Hint(); hint < limit {
			limit = hint
		}
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

func (s *Scheduler) operationStarted(group *suggest.BatchGroup, idx int) {
	s.mu.Lock()
	group.Operations[idx].Status = suggest.OperationProcessing
	op := group.Operations[idx]
	batchID := group.ID
	s.mu.Unlock()
	s.emitOperation(events.TypeOperationStarted, batchID, op)
}

func (s *Scheduler) operationFinished(group *suggest.BatchGroup, idx int, err error) {
	s.mu.Lock()
	if err != nil {
		group.Operations[idx].Status = suggest.OperationFailed
		group.Operations[idx].Error = err.Error()
	} else {
		group.Operations[idx].Status = suggest.OperationCompleted
	}
	group.RefreshProgress()
	op := group.Operations[idx]
	batchID := group.ID
	snapshot := group.Clone()
	s.mu.Unlock()

	if err != nil {
		s.emitOperation(events.TypeOperationFailed, batchID, op)
	} else {
		s.emitOperation(events.TypeOperationCompleted, batchID, op)
	}
	s.emitGroup(events.TypeBatchProgress, snapshot)
}

// finish moves the group to its terminal status. Completed requires
// zero failed operations; a cancellation that already claimed the group
// keeps it cancelled.
func (s *Scheduler) finish(group *suggest.BatchGroup) {
	s.mu.Lock()
	group.RefreshProgress()
	now := time.Now()
	group.FinishedAt = &now
	var eventType events.Type
	switch {
	case group.Status == suggest.BatchCancelled:
		// Cancel already announced it.
	case group.Progress.Failed > 0:
		group.Status = suggest.BatchFailed
		eventType = events.TypeBatchFailed
	default:
		group.Status = suggest.BatchCompleted
		eventType = events.TypeBatchCompleted
	}
	snapshot := group.Clone()
	s.mu.Unlock()

	if eventType != "" {
		s.emitGroup(eventType, snapshot)
	}
	s.logger.Info("batch finished",
		logging.String(logging.FieldBatchID, snapshot.ID),
		logging.String("status", string(snapshot.Status)),
		logging.Int("completed", snapshot.Progress.Completed),
		logging.Int("failed", snapshot.Progress.Failed))
}

// recordResult journals a transaction outcome. Journal failures are
// logged, never propagated: the filesystem work already happened.
func (s *Scheduler) recordResult(batchID string, res *executor.Result) {
	if s.journal == nil || res == nil {
		return
	}
	rec, opRecs := JournalRecords(batchID, res)
	if err := s.journal.RecordTransaction(context.Background(), rec, opRecs); err != nil {
		logging.ErrorWithContext(s.logger, "failed to journal transaction", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldTransactionID, res.TransactionID),
			logging.String(logging.FieldBatchID, batchID),
			logging.String(logging.FieldErrorHint, "undo will not see this transaction; check the database"))
	}
}

// JournalRecords converts an executor result into its journal rows.
func JournalRecords(batchID string, res *executor.Result) (store.TransactionRecord, []store.OperationRecord) {
	rec := store.TransactionRecord{
		ID:        res.TransactionID,
		BatchID:   batchID,
		Status:    string(res.Status),
		CreatedAt: res.StartedAt,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if !res.FinishedAt.IsZero() {
		finished := res.FinishedAt
		rec.FinishedAt = &finished
	}

	opRecs := make([]store.OperationRecord, 0, len(res.Operations))
	for _, opRes := range res.Operations {
		opRec := store.OperationRecord{
			ID:            opRes.ID,
			TransactionID: res.TransactionID,
			Seq:           opRes.Seq,
			Type:          opRes.Operation.Type,
			SourcePath:    opRes.Operation.SourcePath,
			TargetPath:    opRes.Operation.TargetPath,
			BackupPath:    opRes.BackupPath,
			Status:        string(opRes.Status),
		}
		if opRes.Err != nil {
			opRec.Error = opRes.Err.Error()
		}
		if !opRes.ExecutedAt.IsZero() {
			executed := opRes.ExecutedAt
			opRec.ExecutedAt = &executed
		}
		opRecs = append(opRecs, opRec)
	}
	return rec, opRecs
}

func (s *Scheduler) emitGroup(eventType events.Type, group suggest.BatchGroup) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(eventType, events.BatchPayload{
		BatchID:   group.ID,
		BatchType: string(group.Type),
		Priority:  group.Priority,
		Total:     group.Progress.Total,
		Completed: group.Progress.Completed,
		Failed:    group.Progress.Failed,
	})
}

func (s *Scheduler) emitOperation(eventType events.Type, batchID string, op suggest.BatchOperation) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(eventType, events.OperationPayload{
		OperationID: op.ID,
		BatchID:     batchID,
		Operation:   string(op.Type),
		SourcePath:  op.SourcePath,
		TargetPath:  op.TargetPath,
		Error:       op.Error,
	})
}
