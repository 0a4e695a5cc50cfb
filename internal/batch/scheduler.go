package batch

import (
	"context"
	"log/slog"
	"sync"

	"curator/internal/config"
	"curator/internal/events"
	"curator/internal/executor"
	"curator/internal/logging"
	"curator/internal/resources"
	"curator/internal/services"
	"curator/internal/store"
	"curator/internal/suggest"
)

const component = "batch"

// capacityHinter caps concurrency from observed host capacity.
// *resources.Monitor satisfies it.
type capacityHinter interface {
	Hint() int
}

// Scheduler owns the batch queue and the concurrency budget for
// executing file operations. Batches dequeue by weight, interactive
// before background, and at most maxConcurrent run at once. All group
// state is mutated under one lock; status queries hand out copies.
type Scheduler struct {
	logger  *slog.Logger
	bus     *events.Bus
	exec    *executor.Executor
	journal *store.Store
	monitor capacityHinter

	maxBatchSize  int
	maxConcurrent int
	weights       map[suggest.BatchType]int
	createBackups bool

	mu      sync.Mutex
	pending map[string]suggest.BatchOperation
	groups  map[string]*suggest.BatchGroup
	waiting []string
	cancels map[string]context.CancelFunc
	active  int
	running bool
	cancel  context.CancelFunc
	wake    chan struct{}
	wg      sync.WaitGroup
}

// New builds a scheduler from the batch configuration section. The
// journal and monitor may be nil; execution then skips transaction
// journaling and host-capacity capping.
func New(cfg *config.Config, exec *executor.Executor, journal *store.Store, monitor *resources.Monitor, bus *events.Bus, logger *slog.Logger) (*Scheduler, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "config is required", nil)
	}
	if exec == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "an executor is required", nil)
	}
	s := &Scheduler{
		logger:        logging.NewComponentLogger(logger, component),
		bus:           bus,
		exec:          exec,
		journal:       journal,
		maxBatchSize:  cfg.Batch.MaxBatchSize,
		maxConcurrent: cfg.Batch.MaxConcurrentOperations,
		weights: map[suggest.BatchType]int{
			suggest.BatchInteractive: cfg.Batch.InteractiveWeight,
			suggest.BatchBackground:  cfg.Batch.BackgroundWeight,
		},
		createBackups: cfg.Executor.CreateBackups,
		pending:       make(map[string]suggest.BatchOperation),
		groups:        make(map[string]*suggest.BatchGroup),
		cancels:       make(map[string]context.CancelFunc),
		wake:          make(chan struct{}, 1),
	}
	if monitor != nil {
		s.monitor = monitor
	}
	return s, nil
}

// Start launches the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return services.Wrap(services.ErrContract, component, "start", "scheduler already running", nil)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(runCtx)
	s.logger.Info("batch scheduler started",
		logging.Int("max_concurrent", s.maxConcurrent),
		logging.Int("max_batch_size", s.maxBatchSize))
	return nil
}

// Stop halts scheduling and waits for running batches to wind down.
// Executing transactions stop at the next operation boundary and roll
// back what they applied.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("batch scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
		s.dispatch(ctx)
	}
}

// dispatch starts as many waiting batches as free slots allow.
func (s *Scheduler) dispatch(ctx context.Context) {
	for {
		group := s.dequeue()
		if group == nil {
			return
		}
		s.wg.Add(1)
		go s.runBatch(ctx, group)
	}
}

// dequeue pops the heaviest waiting batch if a concurrency slot is
// free. Equal weights leave in arrival order.
func (s *Scheduler) dequeue() *suggest.BatchGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active >= s.maxConcurrent || len(s.waiting) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(s.waiting); i++ {
		if s.groups[s.waiting[i]].Priority > s.groups[s.waiting[best]].Priority {
			best = i
		}
	}
	id := s.waiting[best]
	s.waiting = append(s.waiting[:best], s.waiting[best+1:]...)
	s.active++
	return s.groups[id]
}

// release frees a concurrency slot and wakes the loop.
func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.cancels, id)
	s.active--
	s.mu.Unlock()
	s.signal()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
