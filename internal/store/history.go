package store

import (
	"context"
	"fmt"
	"time"

	"curator/internal/suggest"
)

// SuggestionRecord is the durable trace of one categorized suggestion.
type SuggestionRecord struct {
	ID                 int64
	FileID             string
	OriginalPath       string
	Value              string
	AdjustedConfidence float64
	QualityScore       float64
	Category           suggest.Category
	Reason             string
	CreatedAt          time.Time
}

// AuditRecord is the durable trace of one review override.
type AuditRecord struct {
	ID               int64
	EntryID          string
	OriginalDecision string
	NewDecision      string
	Reason           string
	Actor            string
	CreatedAt        time.Time
}

// RecordSuggestions appends categorized suggestions to the history in
// one database transaction.
func (s *Store) RecordSuggestions(ctx context.Context, records []SuggestionRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, rec := range records {
			created := rec.CreatedAt
			if created.IsZero() {
				created = time.Now()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO suggestion_history (
                    file_id, original_path, value, adjusted_confidence,
                    quality_score, category, reason, created_at
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.FileID,
				rec.OriginalPath,
				rec.Value,
				rec.AdjustedConfidence,
				rec.QualityScore,
				string(rec.Category),
				rec.Reason,
				created.UTC().Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("insert suggestion history: %w", err)
			}
		}
		return tx.Commit()
	})
}

// SuggestionsForFile lists the recorded suggestions for a file, newest
// first.
func (s *Store) SuggestionsForFile(ctx context.Context, fileID string) ([]SuggestionRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_id, original_path, value, adjusted_confidence,
                quality_score, category, reason, created_at
         FROM suggestion_history WHERE file_id = ? ORDER BY created_at DESC, id DESC`,
		fileID)
	if err != nil {
		return nil, fmt.Errorf("query suggestion history: %w", err)
	}
	defer rows.Close()

	var out []SuggestionRecord
	for rows.Next() {
		var (
			rec        SuggestionRecord
			category   string
			createdRaw string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.FileID,
			&rec.OriginalPath,
			&rec.Value,
			&rec.AdjustedConfidence,
			&rec.QualityScore,
			&category,
			&rec.Reason,
			&createdRaw,
		); err != nil {
			return nil, err
		}
		rec.Category = suggest.Category(category)
		if created, err := parseTimeString(createdRaw); err == nil {
			rec.CreatedAt = created
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecordAudit appends a review override to the audit trail.
func (s *Store) RecordAudit(ctx context.Context, rec AuditRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO review_audit (
            entry_id, original_decision, new_decision, reason, actor, created_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.EntryID,
		rec.OriginalDecision,
		rec.NewDecision,
		rec.Reason,
		rec.Actor,
		created.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert review audit: %w", err)
	}
	return nil
}

// AuditTrail lists override records for a review entry, oldest first.
func (s *Store) AuditTrail(ctx context.Context, entryID string) ([]AuditRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entry_id, original_decision, new_decision, reason, actor, created_at
         FROM review_audit WHERE entry_id = ? ORDER BY created_at ASC, id ASC`,
		entryID)
	if err != nil {
		return nil, fmt.Errorf("query review audit: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var (
			rec        AuditRecord
			createdRaw string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.EntryID,
			&rec.OriginalDecision,
			&rec.NewDecision,
			&rec.Reason,
			&rec.Actor,
			&createdRaw,
		); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			rec.CreatedAt = created
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
