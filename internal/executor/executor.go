package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"curator/internal/config"
	"curator/internal/events"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/suggest"
)

// Executor applies lists of file operations atomically: every operation
// is validated before any executes, destructive operations are backed
// up first, and the first failure triggers reverse-order rollback of
// everything already applied. Delete backups are retained after success
// so deletions stay undoable.
type Executor struct {
	logger       *slog.Logger
	bus          *events.Bus
	backupRoot   string
	retainedRoot string
	opTimeout    time.Duration
}

// New builds an Executor rooted at the configured staging directories.
func New(cfg *config.Config, bus *events.Bus, logger *slog.Logger) (*Executor, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "executor", "new", "config is required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		logger:       logging.NewComponentLogger(logger, "executor"),
		bus:          bus,
		backupRoot:   cfg.BackupRoot(),
		retainedRoot: cfg.RetainedBackupRoot(),
		opTimeout:    cfg.OperationTimeout(),
	}, nil
}

// Transaction is an ordered list of operations executed as a unit. A
// Transaction is built and executed by a single goroutine.
type Transaction struct {
	id     string
	exec   *Executor
	ops    []suggest.FileOperation
	status TxStatus
}

// NewTransaction starts an empty transaction.
func (e *Executor) NewTransaction() *Transaction {
	return &Transaction{id: uuid.NewString(), exec: e, status: TxPending}
}

// ID returns the transaction identifier.
func (t *Transaction) ID() string {
	return t.id
}

// Status returns the transaction lifecycle state.
func (t *Transaction) Status() TxStatus {
	return t.status
}

// Add validates the operation eagerly and appends it. Operations cannot
// be added once execution has started.
func (t *Transaction) Add(op suggest.FileOperation) error {
	if t.status != TxPending {
		return services.Wrap(services.ErrContract, "executor", "add operation",
			fmt.Sprintf("transaction %s is %s", t.id, t.status), nil)
	}
	if err := validateOperation(op); err != nil {
		return err
	}
	t.ops = append(t.ops, op)
	return nil
}

// Execute validates every operation again, then applies them in order.
// On the first failure it stops and rolls back applied operations in
// reverse order; compensation failures are collected on the Result
// rather than aborting the rollback. The returned error, when non-nil,
// equals Result.Err.
func (t *Transaction) Execute(ctx context.Context) (*Result, error) {
	res := &Result{TransactionID: t.id, Status: TxFailed, StartedAt: time.Now()}
	if t.status != TxPending {
		res.Err = services.Wrap(services.ErrContract, "executor", "execute",
			fmt.Sprintf("transaction %s is %s", t.id, t.status), nil)
		res.FinishedAt = time.Now()
		return res, res.Err
	}
	t.status = TxExecuting

	results := make([]OperationResult, len(t.ops))
	for i, op := range t.ops {
		results[i] = OperationResult{ID: uuid.NewString(), Seq: i, Operation: op, Status: OpPending}
	}
	res.Operations = results

	// Nothing may change on disk while any operation is invalid.
	for i, op := range t.ops {
		if err := validateOperation(op); err != nil {
			res.Err = fmt.Errorf("operation %d: %w", i, err)
			for j := range results {
				results[j].Status = OpSkipped
			}
			t.finish(res, TxFailed)
			return res, res.Err
		}
	}

	failedAt := -1
	for i := range results {
		if err := ctx.Err(); err != nil {
			results[i].Status = OpFailed
			results[i].Err = err
			res.Err = services.Wrap(services.ErrExecution, "executor", "execute", "transaction interrupted", err)
			failedAt = i
			break
		}
		if err := t.exec.applyOne(ctx, t.id, &results[i]); err != nil {
			results[i].Status = OpFailed
			results[i].Err = err
			res.Err = err
			failedAt = i
			break
		}
		results[i].Status = OpApplied
		results[i].ExecutedAt = time.Now()
		t.exec.logger.Debug("operation applied",
			logging.String(logging.FieldTransactionID, t.id),
			logging.String(logging.FieldOperationID, results[i].ID),
			logging.String("operation", string(results[i].Operation.Type)),
			logging.String("source", results[i].Operation.SourcePath))
	}

	if failedAt >= 0 {
		for j := failedAt + 1; j < len(results); j++ {
			results[j].Status = OpSkipped
		}
		res.RollbackErrs = t.exec.rollback(results[:failedAt])
		t.exec.cleanupAfterRollback(t.id, res.RollbackErrs)
		t.exec.emitRollback(res)
		t.finish(res, TxFailed)
		logging.ErrorWithContext(t.exec.logger, "transaction rolled back", "transaction_failed",
			logging.Error(res.Err),
			logging.String(logging.FieldTransactionID, t.id),
			logging.Int("applied", res.Applied()),
			logging.Int("rolled_back", res.RolledBack()),
			logging.Int("rollback_errors", len(res.RollbackErrs)),
			logging.String(logging.FieldErrorHint, "sources were restored where possible; check the staging backups for leftovers"))
		return res, res.Err
	}

	t.exec.cleanupAfterCommit(t.id)
	t.finish(res, TxCompleted)
	t.exec.logger.Info("transaction completed",
		logging.String(logging.FieldTransactionID, t.id),
		logging.Int("operations", len(results)))
	return res, nil
}

func (t *Transaction) finish(res *Result, status TxStatus) {
	res.Status = status
	res.FinishedAt = time.Now()
	t.status = status
}

// Execute runs ops as one transaction. A validation failure returns a
// Result whose operations are all skipped and leaves the filesystem
// untouched.
func (e *Executor) Execute(ctx context.Context, ops []suggest.FileOperation) (*Result, error) {
	txn := e.NewTransaction()
	for i, op := range ops {
		if err := txn.Add(op); err != nil {
			res := &Result{
				TransactionID: txn.ID(),
				Status:        TxFailed,
				Err:           fmt.Errorf("operation %d: %w", i, err),
				StartedAt:     time.Now(),
				FinishedAt:    time.Now(),
			}
			for j, skipped := range ops {
				res.Operations = append(res.Operations, OperationResult{
					ID:        uuid.NewString(),
					Seq:       j,
					Operation: skipped,
					Status:    OpSkipped,
				})
			}
			txn.status = TxFailed
			return res, res.Err
		}
	}
	return txn.Execute(ctx)
}

// ExecuteOne runs a single operation as its own transaction.
func (e *Executor) ExecuteOne(ctx context.Context, op suggest.FileOperation) (*Result, error) {
	return e.Execute(ctx, []suggest.FileOperation{op})
}

// Validate checks a single operation without touching the filesystem.
func (e *Executor) Validate(op suggest.FileOperation) error {
	return validateOperation(op)
}

// ValidateAll checks every operation without touching the filesystem
// and returns the collected validation errors, indexed by message.
func (e *Executor) ValidateAll(ops []suggest.FileOperation) []error {
	var errs []error
	for i, op := range ops {
		if err := validateOperation(op); err != nil {
			errs = append(errs, fmt.Errorf("operation %d: %w", i, err))
		}
	}
	return errs
}

func (e *Executor) emitRollback(res *Result) {
	if e.bus == nil {
		return
	}
	e.bus.Emit(events.TypeTransactionRolledBack, events.RollbackPayload{
		TransactionID: res.TransactionID,
		Applied:       res.Applied(),
		RolledBack:    res.RolledBack(),
		Errors:        len(res.RollbackErrs),
	})
}
