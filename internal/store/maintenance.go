package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// Summary aggregates journal contents for diagnostic output.
type Summary struct {
	Transactions   map[string]int
	Operations     int
	Suggestions    int
	AuditRecords   int
	OldestRecorded time.Time
}

// Stats returns journal row counts grouped by transaction status.
func (s *Store) Stats(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	summary := Summary{Transactions: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM transactions GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("transaction stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		summary.Transactions[status] = count
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(1) FROM operations", &summary.Operations},
		{"SELECT COUNT(1) FROM suggestion_history", &summary.Suggestions},
		{"SELECT COUNT(1) FROM review_audit", &summary.AuditRecords},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return Summary{}, fmt.Errorf("count rows: %w", err)
		}
	}

	var oldestRaw sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(created_at) FROM transactions`).Scan(&oldestRaw); err == nil && oldestRaw.Valid {
		if oldest, parseErr := parseTimeString(oldestRaw.String); parseErr == nil {
			summary.OldestRecorded = oldest
		}
	}
	return summary, nil
}

// PruneOlderThan removes journal rows created before cutoff. Operations
// follow their transactions through the cascade. Returns the number of
// rows deleted across all tables.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	boundary := cutoff.UTC().Format(time.RFC3339Nano)

	var total int64
	for _, query := range []string{
		`DELETE FROM transactions WHERE created_at < ?`,
		`DELETE FROM suggestion_history WHERE created_at < ?`,
		`DELETE FROM review_audit WHERE created_at < ?`,
	} {
		res, err := s.execWithRetry(ctx, query, boundary)
		if err != nil {
			return total, fmt.Errorf("prune journal: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// Health reports diagnostic information about the journal database.
type Health struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    bool
	Error            string
}

// CheckHealth verifies the journal database file, connection, and core
// tables.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("journal database path is unknown")
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat journal database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("journal database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("journal database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping journal database: %w", err)
	}
	health.DatabaseReadable = true

	var name string
	row := s.db.QueryRowContext(connCtx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'transactions'")
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return health, nil
		}
		health.Error = err.Error()
		return health, fmt.Errorf("query table info: %w", err)
	}
	health.TablesPresent = true
	return health, nil
}
