package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget names a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the targets whose mtime is older
// than retentionDays. Zero or negative retention disables pruning; the
// current run's own files belong in Exclude.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	keep := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			if abs := absOrEmpty(path); abs != "" {
				keep[abs] = struct{}{}
			}
		}
	}

	for _, target := range targets {
		pruneTarget(logger, target, cutoff, keep)
	}
}

func pruneTarget(logger *slog.Logger, target RetentionTarget, cutoff time.Time, keep map[string]struct{}) {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	pattern := strings.TrimSpace(target.Pattern)
	for _, entry := range entries {
		if entry.IsDir() || !nameMatches(pattern, entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if abs := absOrEmpty(path); abs != "" {
			path = abs
		}
		if _, skip := keep[path]; skip {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
			)
			continue
		}
		if logger != nil {
			logger.Info("log pruned",
				String("path", path),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
}

func nameMatches(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}

func absOrEmpty(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return ""
	}
	return abs
}
