package executor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"curator/internal/fileops"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/suggest"
)

// AppliedOperation is the minimum an undo needs to know about an
// operation that previously completed: what it did and where the
// retained backup lives, if one does.
type AppliedOperation struct {
	Type       suggest.OperationType
	SourcePath string
	TargetPath string
	BackupPath string
}

// Undo reverses previously applied operations in reverse order. It is
// best effort: every operation is attempted even when an earlier one
// fails, and the combined errors are returned alongside the count of
// operations actually reversed. An operation whose original location
// has since been reoccupied is refused rather than overwritten.
func (e *Executor) Undo(ctx context.Context, applied []AppliedOperation) (int, error) {
	reversed := 0
	var errs []error
	for i := len(applied) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			errs = append(errs, services.Wrap(services.ErrExecution, component, "undo", "undo interrupted", err))
			break
		}
		op := applied[i]
		if err := e.undoOne(ctx, op); err != nil {
			errs = append(errs, fmt.Errorf("undo %s %s: %w", op.Type, op.SourcePath, err))
			continue
		}
		reversed++
		e.logger.Debug("operation reversed",
			logging.String("operation", string(op.Type)),
			logging.String("source", op.SourcePath))
	}
	return reversed, errors.Join(errs...)
}

func (e *Executor) undoOne(ctx context.Context, op AppliedOperation) error {
	switch op.Type {
	case suggest.OperationRename, suggest.OperationMove:
		exists, err := fileops.Exists(op.TargetPath)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("file no longer at %s", op.TargetPath)
		}
		occupied, err := fileops.Exists(op.SourcePath)
		if err != nil {
			return err
		}
		if occupied {
			return fmt.Errorf("original path %s is occupied", op.SourcePath)
		}
		return fileops.MoveContext(ctx, op.TargetPath, op.SourcePath)
	case suggest.OperationCopy:
		exists, err := fileops.Exists(op.TargetPath)
		if err != nil {
			return err
		}
		if !exists {
			return nil
		}
		return os.Remove(op.TargetPath)
	case suggest.OperationDelete:
		if op.BackupPath == "" {
			return errors.New("no retained backup")
		}
		exists, err := fileops.Exists(op.BackupPath)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("retained backup %s is missing", op.BackupPath)
		}
		occupied, err := fileops.Exists(op.SourcePath)
		if err != nil {
			return err
		}
		if occupied {
			return fmt.Errorf("original path %s is occupied", op.SourcePath)
		}
		return fileops.MoveContext(ctx, op.BackupPath, op.SourcePath)
	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}
