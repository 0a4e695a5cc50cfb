package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"curator/internal/suggest"
)

// Transaction status values recorded in the journal.
const (
	TxCompleted = "completed"
	TxFailed    = "failed"
	TxUndone    = "undone"
)

// Operation status values recorded in the journal.
const (
	OpApplied    = "applied"
	OpFailed     = "failed"
	OpRolledBack = "rolled_back"
	OpSkipped    = "skipped"
)

// TransactionRecord is the journal entry for one executed transaction.
type TransactionRecord struct {
	ID         string
	BatchID    string
	Status     string
	Error      string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// OperationRecord is the journal entry for one operation inside a
// transaction. Seq preserves apply order so undo can run in reverse.
type OperationRecord struct {
	ID            string
	TransactionID string
	Seq           int
	Type          suggest.OperationType
	SourcePath    string
	TargetPath    string
	BackupPath    string
	Status        string
	Error         string
	ExecutedAt    *time.Time
}

const transactionColumns = "id, batch_id, status, error_message, created_at, finished_at"
const operationColumns = "id, transaction_id, seq, op_type, source_path, target_path, backup_path, status, error_message, executed_at"

// RecordTransaction writes a transaction and its operations in one
// database transaction.
func (s *Store) RecordTransaction(ctx context.Context, rec TransactionRecord, ops []OperationRecord) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID,
			rec.BatchID,
			rec.Status,
			rec.Error,
			rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			nullableTime(rec.FinishedAt),
		); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		for _, op := range ops {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO operations (`+operationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				op.ID,
				rec.ID,
				op.Seq,
				string(op.Type),
				op.SourcePath,
				op.TargetPath,
				op.BackupPath,
				op.Status,
				op.Error,
				nullableTime(op.ExecutedAt),
			); err != nil {
				return fmt.Errorf("insert operation %s: %w", op.ID, err)
			}
		}
		return tx.Commit()
	})
}

// Transaction fetches one journal entry with its operations in apply
// order. Returns sql.ErrNoRows when the id is unknown.
func (s *Store) Transaction(ctx context.Context, id string) (TransactionRecord, []OperationRecord, error) {
	ctx = ensureContext(ctx)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	rec, err := scanTransaction(row)
	if err != nil {
		return TransactionRecord{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE transaction_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return TransactionRecord{}, nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	var ops []OperationRecord
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return TransactionRecord{}, nil, err
		}
		ops = append(ops, op)
	}
	return rec, ops, rows.Err()
}

// RecentTransactions lists journal entries newest first, up to limit.
func (s *Store) RecentTransactions(ctx context.Context, limit int) ([]TransactionRecord, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TransactionsForBatch lists the journal entries recorded under one
// batch, newest first so undo can reverse them in inverse apply order.
func (s *Store) TransactionsForBatch(ctx context.Context, batchID string) ([]TransactionRecord, error) {
	ctx = ensureContext(ctx)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE batch_id = ? ORDER BY created_at DESC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch transactions: %w", err)
	}
	defer rows.Close()

	var out []TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TransactionsByStatus lists journal entries matching any of the given
// statuses, newest first.
func (s *Store) TransactionsByStatus(ctx context.Context, statuses ...string) ([]TransactionRecord, error) {
	ctx = ensureContext(ctx)
	if len(statuses) == 0 {
		return nil, errors.New("at least one status required")
	}

	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, status)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE status IN (`+makePlaceholders(len(statuses))+`) ORDER BY created_at DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions by status: %w", err)
	}
	defer rows.Close()

	var out []TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkTransactionUndone flips a completed transaction to undone.
func (s *Store) MarkTransactionUndone(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE transactions SET status = ? WHERE id = ? AND status = ?`,
		TxUndone, id, TxCompleted)
	if err != nil {
		return fmt.Errorf("mark transaction undone: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s is not completed: %w", id, sql.ErrNoRows)
	}
	return nil
}

func scanTransaction(scanner interface{ Scan(dest ...any) error }) (TransactionRecord, error) {
	var (
		rec         TransactionRecord
		createdRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(&rec.ID, &rec.BatchID, &rec.Status, &rec.Error, &createdRaw, &finishedRaw); err != nil {
		return TransactionRecord{}, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			rec.FinishedAt = &finished
		}
	}
	return rec, nil
}

func scanOperation(scanner interface{ Scan(dest ...any) error }) (OperationRecord, error) {
	var (
		op          OperationRecord
		opType      string
		executedRaw sql.NullString
	)
	if err := scanner.Scan(
		&op.ID,
		&op.TransactionID,
		&op.Seq,
		&opType,
		&op.SourcePath,
		&op.TargetPath,
		&op.BackupPath,
		&op.Status,
		&op.Error,
		&executedRaw,
	); err != nil {
		return OperationRecord{}, err
	}
	op.Type = suggest.OperationType(opType)
	if executedRaw.Valid {
		if executed, err := parseTimeString(executedRaw.String); err == nil {
			op.ExecutedAt = &executed
		}
	}
	return op, nil
}
