package logging

import (
	"context"
	"log/slog"

	"curator/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBatchID is the standardized structured logging key for batch group identifiers.
	FieldBatchID = "batch_id"
	// FieldTransactionID is the standardized structured logging key for executor transactions.
	FieldTransactionID = "transaction_id"
	// FieldOperationID is the standardized structured logging key for batch operations.
	FieldOperationID = "operation_id"
	// FieldEntryID is the standardized structured logging key for review queue entries.
	FieldEntryID = "entry_id"
	// FieldFileID is the standardized structured logging key for suggestion target files.
	FieldFileID = "file_id"
	// FieldEventType is the standardized structured logging key for machine-readable event labels.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator guidance on failures.
	FieldErrorHint = "error_hint"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.BatchIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	if id, ok := services.TransactionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTransactionID, id))
	}
	if id, ok := services.OperationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldOperationID, id))
	}
	if id, ok := services.EntryIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldEntryID, id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
