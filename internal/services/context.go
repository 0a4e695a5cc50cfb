package services

import "context"

type contextKey string

const (
	batchIDKey     contextKey = "batch_id"
	transactionKey contextKey = "transaction_id"
	operationKey   contextKey = "operation_id"
	entryIDKey     contextKey = "entry_id"
	requestIDKey   contextKey = "request_id"
)

// WithBatchID annotates context with the batch group identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the batch group identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTransactionID annotates context with the executor transaction identifier.
func WithTransactionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, transactionKey, id)
}

// TransactionIDFromContext extracts the transaction identifier if present.
func TransactionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(transactionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithOperationID annotates context with the batch operation identifier.
func WithOperationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, id)
}

// OperationIDFromContext extracts the operation identifier if present.
func OperationIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(operationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithEntryID annotates context with a review queue entry identifier.
func WithEntryID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, entryIDKey, id)
}

// EntryIDFromContext extracts the review entry identifier if present.
func EntryIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(entryIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
