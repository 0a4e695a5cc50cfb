package executor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"curator/internal/logging"
	"curator/internal/services"
)

// PruneBackups removes retained backup directories last modified before
// cutoff. Undo stops working for the transactions they belonged to.
func (e *Executor) PruneBackups(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(e.retainedRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, services.Wrap(services.ErrExecution, component, "prune backups", "read retained backup root", err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, fmt.Errorf("stat %s: %w", entry.Name(), err))
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(e.retainedRoot, entry.Name())); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", entry.Name(), err))
			continue
		}
		removed++
	}
	if removed > 0 {
		e.logger.Info("pruned retained backups",
			logging.Int("transactions", removed),
			logging.String("cutoff", cutoff.Format(time.RFC3339)))
	}
	return removed, errors.Join(errs...)
}
