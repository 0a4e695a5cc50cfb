package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"curator/internal/executor"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/store"
)

// UndoReport summarizes one undo run.
type UndoReport struct {
	TransactionID string
	Reversed      int
	Total         int
}

// Undo reverses a completed transaction from its journal record. Only
// completed transactions qualify: failed ones already rolled themselves
// back, and undone ones have nothing left to reverse. Operations are
// reversed newest first; the transaction is marked undone only when
// every reversal succeeded.
func (e *Engine) Undo(ctx context.Context, transactionID string) (UndoReport, error) {
	if e.journal == nil {
		return UndoReport{}, services.Wrap(services.ErrConfiguration, component, "undo", "no journal attached", nil)
	}

	rec, opRecs, err := e.journal.Transaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UndoReport{}, services.Wrap(services.ErrNotFound, component, "undo",
				fmt.Sprintf("no transaction %s", transactionID), nil)
		}
		return UndoReport{}, err
	}
	switch rec.Status {
	case store.TxUndone:
		return UndoReport{}, services.Wrap(services.ErrContract, component, "undo",
			fmt.Sprintf("transaction %s is already undone", transactionID), nil)
	case store.TxCompleted:
	default:
		return UndoReport{}, services.Wrap(services.ErrContract, component, "undo",
			fmt.Sprintf("transaction %s is %s; only completed transactions can be undone", transactionID, rec.Status), nil)
	}

	applied := make([]executor.AppliedOperation, 0, len(opRecs))
	for _, op := range opRecs {
		if op.Status != store.OpApplied {
			continue
		}
		applied = append(applied, executor.AppliedOperation{
			Type:       op.Type,
			SourcePath: op.SourcePath,
			TargetPath: op.TargetPath,
			BackupPath: op.BackupPath,
		})
	}

	report := UndoReport{TransactionID: transactionID, Total: len(applied)}
	reversed, undoErr := e.exec.Undo(ctx, applied)
	report.Reversed = reversed
	if undoErr != nil {
		return report, undoErr
	}

	if err := e.journal.MarkTransactionUndone(ctx, transactionID); err != nil {
		return report, err
	}
	e.logger.Info("transaction undone",
		logging.String(logging.FieldTransactionID, transactionID),
		logging.Int("operations", reversed))
	return report, nil
}

// UndoBatch reverses every completed transaction journaled under the
// batch, newest first. Failed transactions already rolled themselves
// back and undone ones have nothing left, so both are skipped. The
// first reversal error stops the run; earlier transactions stay
// applied until the later ones are off the disk.
func (e *Engine) UndoBatch(ctx context.Context, batchID string) ([]UndoReport, error) {
	if e.journal == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "undo batch", "no journal attached", nil)
	}
	recs, err := e.journal.TransactionsForBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, services.Wrap(services.ErrNotFound, component, "undo batch",
			fmt.Sprintf("no transactions recorded for batch %s", batchID), nil)
	}

	var reports []UndoReport
	for _, rec := range recs {
		if rec.Status != store.TxCompleted {
			continue
		}
		report, err := e.Undo(ctx, rec.ID)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	if len(reports) == 0 {
		return nil, services.Wrap(services.ErrContract, component, "undo batch",
			fmt.Sprintf("batch %s has no completed transactions left to undo", batchID), nil)
	}
	return reports, nil
}

// RecentTransactions lists journaled transactions, newest first.
func (e *Engine) RecentTransactions(ctx context.Context, limit int) ([]store.TransactionRecord, error) {
	if e.journal == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "recent transactions", "no journal attached", nil)
	}
	return e.journal.RecentTransactions(ctx, limit)
}

// TransactionDetail fetches one journaled transaction with its
// operations.
func (e *Engine) TransactionDetail(ctx context.Context, id string) (store.TransactionRecord, []store.OperationRecord, error) {
	if e.journal == nil {
		return store.TransactionRecord{}, nil, services.Wrap(services.ErrConfiguration, component, "transaction detail", "no journal attached", nil)
	}
	rec, ops, err := e.journal.Transaction(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.TransactionRecord{}, nil, services.Wrap(services.ErrNotFound, component, "transaction detail",
				fmt.Sprintf("no transaction %s", id), nil)
		}
		return store.TransactionRecord{}, nil, err
	}
	return rec, ops, nil
}

// SuggestionHistory lists the recorded suggestion outcomes for a file.
func (e *Engine) SuggestionHistory(ctx context.Context, fileID string) ([]store.SuggestionRecord, error) {
	if e.journal == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "suggestion history", "no journal attached", nil)
	}
	return e.journal.SuggestionsForFile(ctx, fileID)
}
