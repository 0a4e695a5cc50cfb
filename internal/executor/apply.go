package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"curator/internal/fileops"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/suggest"
)

func (e *Executor) applyOne(ctx context.Context, txnID string, r *OperationResult) error {
	if e.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opTimeout)
		defer cancel()
	}

	switch r.Operation.Type {
	case suggest.OperationRename, suggest.OperationMove:
		return e.applyMove(ctx, txnID, r)
	case suggest.OperationCopy:
		return e.applyCopy(ctx, txnID, r)
	case suggest.OperationDelete:
		return e.applyDelete(ctx, txnID, r)
	default:
		return services.Wrap(services.ErrContract, component, "apply",
			fmt.Sprintf("unknown operation type %q", r.Operation.Type), nil)
	}
}

func (e *Executor) applyMove(ctx context.Context, txnID string, r *OperationResult) error {
	op := r.Operation
	if err := e.prepareTarget(txnID, r); err != nil {
		return err
	}
	if err := fileops.MoveContext(ctx, op.SourcePath, op.TargetPath); err != nil {
		return services.Wrap(services.ErrExecution, component, string(op.Type),
			fmt.Sprintf("move %s to %s", op.SourcePath, op.TargetPath), err)
	}
	return nil
}

func (e *Executor) applyCopy(ctx context.Context, txnID string, r *OperationResult) error {
	op := r.Operation
	if err := e.prepareTarget(txnID, r); err != nil {
		return err
	}
	if err := fileops.CopyVerifiedContext(ctx, op.SourcePath, op.TargetPath); err != nil {
		return services.Wrap(services.ErrExecution, component, "copy",
			fmt.Sprintf("copy %s to %s", op.SourcePath, op.TargetPath), err)
	}
	return nil
}

// applyDelete always backs the file up, regardless of the operation's
// CreateBackup flag. The backup lands in the retained area and outlives
// the transaction so the deletion can be undone.
func (e *Executor) applyDelete(ctx context.Context, txnID string, r *OperationResult) error {
	op := r.Operation
	backup := filepath.Join(e.retainedRoot, txnID, backupName(r.Seq, op.SourcePath))
	if err := fileops.EnsureDir(filepath.Dir(backup)); err != nil {
		return services.Wrap(services.ErrExecution, component, "delete",
			fmt.Sprintf("create backup directory for %s", op.SourcePath), err)
	}
	if err := fileops.CopyVerifiedContext(ctx, op.SourcePath, backup); err != nil {
		return services.Wrap(services.ErrExecution, component, "delete",
			fmt.Sprintf("back up %s", op.SourcePath), err)
	}
	r.BackupPath = backup
	if err := os.Remove(op.SourcePath); err != nil {
		return services.Wrap(services.ErrExecution, component, "delete",
			fmt.Sprintf("remove %s", op.SourcePath), err)
	}
	return nil
}

// prepareTarget re-checks the target immediately before writing and
// creates its directory. A Force overwrite backs up the file it is
// about to clobber when CreateBackup is set.
func (e *Executor) prepareTarget(txnID string, r *OperationResult) error {
	op := r.Operation
	exists, err := fileops.Exists(op.TargetPath)
	if err != nil {
		return services.Wrap(services.ErrExecution, component, string(op.Type),
			fmt.Sprintf("check target %s", op.TargetPath), err)
	}
	if exists {
		if !op.Force {
			return services.Wrap(services.ErrExecution, component, string(op.Type),
				fmt.Sprintf("target %s already exists", op.TargetPath), nil)
		}
		if op.CreateBackup {
			backup := filepath.Join(e.backupRoot, txnID, backupName(r.Seq, op.TargetPath))
			if err := fileops.EnsureDir(filepath.Dir(backup)); err != nil {
				return services.Wrap(services.ErrExecution, component, string(op.Type),
					fmt.Sprintf("create backup directory for %s", op.TargetPath), err)
			}
			if err := fileops.CopyVerified(op.TargetPath, backup); err != nil {
				return services.Wrap(services.ErrExecution, component, string(op.Type),
					fmt.Sprintf("back up %s before overwrite", op.TargetPath), err)
			}
			r.BackupPath = backup
		}
	}
	if err := fileops.EnsureDir(filepath.Dir(op.TargetPath)); err != nil {
		return services.Wrap(services.ErrExecution, component, string(op.Type),
			fmt.Sprintf("create target directory for %s", op.TargetPath), err)
	}
	return nil
}

// rollback compensates applied operations in reverse order. Failures
// are collected so every remaining step is still attempted; operations
// that could not be compensated keep their applied status.
func (e *Executor) rollback(results []OperationResult) []error {
	var errs []error
	for i := len(results) - 1; i >= 0; i-- {
		r := &results[i]
		if r.Status != OpApplied {
			continue
		}
		if err := e.compensate(r); err != nil {
			errs = append(errs, fmt.Errorf("rollback %s %s: %w", r.Operation.Type, r.Operation.SourcePath, err))
			continue
		}
		r.Status = OpRolledBack
	}
	return errs
}

func (e *Executor) compensate(r *OperationResult) error {
	op := r.Operation
	switch op.Type {
	case suggest.OperationRename, suggest.OperationMove:
		if err := fileops.Move(op.TargetPath, op.SourcePath); err != nil {
			return err
		}
		if r.BackupPath != "" {
			return fileops.Move(r.BackupPath, op.TargetPath)
		}
		return nil
	case suggest.OperationCopy:
		if err := os.Remove(op.TargetPath); err != nil {
			return err
		}
		if r.BackupPath != "" {
			return fileops.Move(r.BackupPath, op.TargetPath)
		}
		return nil
	case suggest.OperationDelete:
		if r.BackupPath == "" {
			return errors.New("no backup to restore")
		}
		return fileops.Move(r.BackupPath, op.SourcePath)
	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}

func (e *Executor) cleanupAfterCommit(txnID string) {
	dir := filepath.Join(e.backupRoot, txnID)
	if err := os.RemoveAll(dir); err != nil {
		e.logger.Warn("failed to remove transaction backups",
			logging.Error(err),
			logging.String(logging.FieldTransactionID, txnID),
			logging.String("path", dir))
	}
	// Retained delete backups stay behind for undo.
}

func (e *Executor) cleanupAfterRollback(txnID string, rollbackErrs []error) {
	if len(rollbackErrs) > 0 {
		logging.WarnWithContext(e.logger, "keeping transaction backups after partial rollback", "rollback_incomplete",
			logging.String(logging.FieldTransactionID, txnID),
			logging.String(logging.FieldErrorHint, "inspect the staging backup directories and restore manually"))
		return
	}
	for _, dir := range []string{
		filepath.Join(e.backupRoot, txnID),
		filepath.Join(e.retainedRoot, txnID),
	} {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("failed to remove transaction backups",
				logging.Error(err),
				logging.String(logging.FieldTransactionID, txnID),
				logging.String("path", dir))
		}
	}
}

func backupName(seq int, path string) string {
	return fmt.Sprintf("%03d_%s", seq, filepath.Base(path))
}
