package batch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"curator/internal/events"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/suggest"
)

// normalizeOperation fills in identity and status defaults and rejects
// operations the executor could never run.
func normalizeOperation(op suggest.BatchOperation) (suggest.BatchOperation, error) {
	opType, ok := suggest.ParseOperationType(string(op.Type))
	if !ok {
		return op, services.Wrap(services.ErrValidation, component, "stage",
			fmt.Sprintf("unknown operation type %q", string(op.Type)), nil)
	}
	op.Type = opType
	if strings.TrimSpace(op.SourcePath) == "" {
		return op, services.Wrap(services.ErrValidation, component, "stage", "source path is required", nil)
	}
	if opType != suggest.OperationDelete && strings.TrimSpace(op.TargetPath) == "" {
		return op, services.Wrap(services.ErrValidation, component, "stage",
			fmt.Sprintf("%s operation requires a target path", opType), nil)
	}
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Status == "" {
		op.Status = suggest.OperationPending
	}
	if op.Priority == "" {
		op.Priority = suggest.PriorityForConfidence(op.Confidence)
	}
	return op, nil
}

// AddOperation stages an operation for later batching and returns its
// id. High-priority operations skip staging and become an interactive
// batch of one immediately.
func (s *Scheduler) AddOperation(op suggest.BatchOperation) (string, error) {
	op, err := normalizeOperation(op)
	if err != nil {
		return "", err
	}

	if op.Priority == suggest.PriorityHigh {
		ids, err := s.enqueue([]suggest.BatchOperation{op}, suggest.BatchInteractive)
		if err != nil {
			return "", err
		}
		s.logger.Info("high-priority operation batched immediately",
			logging.String(logging.FieldOperationID, op.ID),
			logging.String(logging.FieldBatchID, ids[0]))
		return op.ID, nil
	}

	s.mu.Lock()
	s.pending[op.ID] = op
	staged := len(s.pending)
	s.mu.Unlock()

	s.logger.Debug("operation staged",
		logging.String(logging.FieldOperationID, op.ID),
		logging.String("operation", string(op.Type)),
		logging.Int("staged", staged))
	return op.ID, nil
}

// CreateBatch turns staged operations into queued batch groups of at
// most maxBatchSize operations each. An unknown id fails the whole call
// and leaves every staged operation in place.
func (s *Scheduler) CreateBatch(ids []string, batchType suggest.BatchType) ([]string, error) {
	if len(ids) == 0 {
		return nil, services.Wrap(services.ErrValidation, component, "create batch", "no operation ids given", nil)
	}

	s.mu.Lock()
	ops := make([]suggest.BatchOperation, 0, len(ids))
	for _, id := range ids {
		op, ok := s.pending[id]
		if !ok {
			s.mu.Unlock()
			return nil, services.Wrap(services.ErrNotFound, component, "create batch",
				fmt.Sprintf("no staged operation %s", id), nil)
		}
		ops = append(ops, op)
	}
	for _, id := range ids {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	return s.enqueue(ops, batchType)
}

// Submit queues pre-built operations directly, bypassing the staging
// map. The auto-approval orchestrator hands its batches over through
// this entry point.
func (s *Scheduler) Submit(ops []suggest.BatchOperation, batchType suggest.BatchType) ([]string, error) {
	if len(ops) == 0 {
		return nil, services.Wrap(services.ErrValidation, component, "submit", "empty batch", nil)
	}
	normalized := make([]suggest.BatchOperation, 0, len(ops))
	for _, op := range ops {
		n, err := normalizeOperation(op)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, n)
	}
	return s.enqueue(normalized, batchType)
}

// enqueue partitions ops into groups, registers them, and wakes the
// scheduling loop.
func (s *Scheduler) enqueue(ops []suggest.BatchOperation, batchType suggest.BatchType) ([]string, error) {
	weight, ok := s.weights[batchType]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, component, "create batch",
			fmt.Sprintf("unknown batch type %q", string(batchType)), nil)
	}

	now := time.Now()
	var queued []suggest.BatchGroup
	s.mu.Lock()
	for start := 0; start < len(ops); start += s.maxBatchSize {
		end := start + s.maxBatchSize
		if end > len(ops) {
			end = len(ops)
		}
		chunk := make([]suggest.BatchOperation, end-start)
		copy(chunk, ops[start:end])
		group := &suggest.BatchGroup{
			ID:         uuid.NewString(),
			Operations: chunk,
			Type:       batchType,
			Priority:   weight,
			Status:     suggest.BatchPending,
			CreatedAt:  now,
		}
		group.RefreshProgress()
		s.groups[group.ID] = group
		s.waiting = append(s.waiting, group.ID)
		queued = append(queued, group.Clone())
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(queued))
	for _, group := range queued {
		ids = append(ids, group.ID)
		s.emitGroup(events.TypeBatchQueued, group)
	}
	s.signal()

	s.logger.Info("batches queued",
		logging.Int("groups", len(ids)),
		logging.Int("operations", len(ops)),
		logging.String("type", string(batchType)))
	return ids, nil
}

// Cancel marks a batch cancelled. Nothing new starts in it; operations
// already under way finish on their own.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	group, ok := s.groups[id]
	if !ok {
		s.mu.Unlock()
		return services.Wrap(services.ErrNotFound, component, "cancel",
			fmt.Sprintf("no batch %s", id), nil)
	}
	if group.Status.Terminal() {
		status := group.Status
		s.mu.Unlock()
		return services.Wrap(services.ErrContract, component, "cancel",
			fmt.Sprintf("batch %s is already %s", id, status), nil)
	}
	if group.Status == suggest.BatchPending {
		for i, waitingID := range s.waiting {
			if waitingID == id {
				s.waiting = append(s.waiting[:i], s.waiting[i+1:]...)
				break
			}
		}
		now := time.Now()
		group.FinishedAt = &now
	}
	group.Status = suggest.BatchCancelled
	cancelRun := s.cancels[id]
	snapshot := group.Clone()
	s.mu.Unlock()

	if cancelRun != nil {
		cancelRun()
	}
	s.emitGroup(events.TypeBatchCancelled, snapshot)
	s.logger.Info("batch cancelled", logging.String(logging.FieldBatchID, id))
	return nil
}

// Batch returns a copy of one group.
func (s *Scheduler) Batch(id string) (suggest.BatchGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[id]
	if !ok {
		return suggest.BatchGroup{}, services.Wrap(services.ErrNotFound, component, "status",
			fmt.Sprintf("no batch %s", id), nil)
	}
	return group.Clone(), nil
}

// Batches lists every known group, newest first.
func (s *Scheduler) Batches() []suggest.BatchGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]suggest.BatchGroup, 0, len(s.groups))
	for _, group := range s.groups {
		out = append(out, group.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// StagedOperations lists operations awaiting batch assignment.
func (s *Scheduler) StagedOperations() []suggest.BatchOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]suggest.BatchOperation, 0, len(s.pending))
	for _, op := range s.pending {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Counts reports staged operations, waiting batches, and running
// batches, in that order.
func (s *Scheduler) Counts() (int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), len(s.waiting), s.active
}

// WaitIdle blocks until no batch is waiting or running, or ctx ends.
// Tests and drain paths use it; normal operation never calls it.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		s.mu.Lock()
		idle := len(s.waiting) == 0 && s.active == 0
		s.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
