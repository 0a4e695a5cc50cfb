package approval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"curator/internal/clock"
	"curator/internal/config"
	"curator/internal/events"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/suggest"
)

const component = "approval"

// BatchSink receives completed approval batches. The batch scheduler
// implements it; tests substitute a recorder.
type BatchSink interface {
	Submit(ops []suggest.BatchOperation, batchType suggest.BatchType) ([]string, error)
}

// settings is the orchestrator's configuration snapshot, swapped as a
// unit so concurrent enqueues never see a half-applied update.
type settings struct {
	requireMin  float64
	maxQueue    int
	maxPerBatch int
	interval    time.Duration
	rules       []safetyRule
}

func buildSettings(cfg *config.Config) (settings, error) {
	rules, err := compileRules(cfg.Approval.DangerousPathGlobs)
	if err != nil {
		return settings{}, services.Wrap(services.ErrConfiguration, component, "configure", "compile safety rules", err)
	}
	return settings{
		requireMin:  cfg.Approval.RequireMinConfidence,
		maxQueue:    cfg.Approval.MaxQueueSize,
		maxPerBatch: cfg.Approval.MaxPerBatch,
		interval:    cfg.BatchInterval(),
		rules:       rules,
	}, nil
}

// Orchestrator turns auto-approved suggestions into background batches.
// Every item passes a second safety net before it may queue; the queue
// drains into the sink on a timer and immediately once a batch's worth
// is waiting.
type Orchestrator struct {
	logger *slog.Logger
	bus    *events.Bus
	sink   BatchSink
	clk    clock.Clock

	mu       sync.Mutex
	settings settings
	queue    []suggest.QueueEntry
	running  bool
	stop     chan struct{}
	ticker   clock.Ticker
	wg       sync.WaitGroup
}

// New builds an orchestrator from the approval configuration section.
func New(cfg *config.Config, sink BatchSink, bus *events.Bus, logger *slog.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "config is required", nil)
	}
	if sink == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "a batch sink is required", nil)
	}
	st, err := buildSettings(cfg)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		logger:   logging.NewComponentLogger(logger, component),
		bus:      bus,
		sink:     sink,
		clk:      clock.NewReal(),
		settings: st,
	}, nil
}

// Start launches the batch timer. The loop stops when ctx is cancelled
// or Close is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return services.Wrap(services.ErrContract, component, "start", "orchestrator already running", nil)
	}
	o.running = true
	o.stop = make(chan struct{})
	o.ticker = o.clk.NewTicker(o.settings.interval)
	ticker := o.ticker
	interval := o.settings.interval
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(ctx, ticker)
	o.logger.Info("auto-approval timer started", logging.Duration("interval", interval))
	return nil
}

func (o *Orchestrator) run(ctx context.Context, ticker clock.Ticker) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stop:
			return
		case <-ticker.C():
			if err := o.Flush(); err != nil {
				o.logger.Warn("scheduled batch creation failed", logging.Error(err))
			}
		}
	}
}

// Close stops the timer and clears the queue. Entries still waiting are
// dropped, not batched.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if !o.running {
		o.queue = nil
		o.mu.Unlock()
		return nil
	}
	o.running = false
	close(o.stop)
	if o.ticker != nil {
		o.ticker.Stop()
	}
	dropped := len(o.queue)
	o.queue = nil
	o.mu.Unlock()

	o.wg.Wait()
	o.logger.Info("auto-approval orchestrator closed", logging.Int("dropped", dropped))
	return nil
}

// UpdateConfig swaps the orchestrator's settings atomically. Nothing
// changes when validation fails, and a changed interval restarts the
// running timer.
func (o *Orchestrator) UpdateConfig(cfg *config.Config) error {
	if cfg == nil {
		return services.Wrap(services.ErrConfiguration, component, "configure", "config is required", nil)
	}
	next, err := buildSettings(cfg)
	if err != nil {
		return err
	}

	o.mu.Lock()
	previous := o.settings.interval
	o.settings = next
	ticker := o.ticker
	running := o.running
	o.mu.Unlock()

	if running && ticker != nil && next.interval != previous {
		ticker.Reset(next.interval)
		o.logger.Info("approval timer interval changed",
			logging.Duration("previous", previous),
			logging.Duration("interval", next.interval))
	}
	return nil
}

// Enqueue vets one auto-approved suggestion and queues it for batch
// creation. The returned error classifies the rejection; nil means the
// item is queued. Crossing the batch size or 80% of queue capacity
// triggers immediate batch creation.
func (o *Orchestrator) Enqueue(sugg suggest.CategorizedSuggestion, meta suggest.FileMetadata) error {
	o.mu.Lock()
	st := o.settings
	o.mu.Unlock()

	if err := vet(sugg, meta, st); err != nil {
		return err
	}

	o.mu.Lock()
	if len(o.queue) >= st.maxQueue {
		size := len(o.queue)
		o.mu.Unlock()
		o.emit(events.TypeQueueCapacity, events.CapacityPayload{
			Queue:    component,
			Size:     size,
			Capacity: st.maxQueue,
		})
		return services.Wrap(services.ErrCapacity, component, "enqueue",
			fmt.Sprintf("approval queue is full (%d entries)", size), nil)
	}
	entry := suggest.QueueEntry{
		ID:                    uuid.NewString(),
		Suggestion:            sugg,
		Metadata:              meta,
		QueuedAt:              o.clk.Now(),
		Priority:              suggest.PriorityForConfidence(sugg.AdjustedConfidence),
		SafetyChecksCompleted: true,
	}
	o.queue = append(o.queue, entry)
	size := len(o.queue)
	o.mu.Unlock()

	o.logger.Debug("suggestion queued for auto-approval",
		logging.String(logging.FieldFileID, meta.FileID),
		logging.Float64("confidence", sugg.AdjustedConfidence),
		logging.Int("queue_size", size))

	if size >= st.maxPerBatch || 5*size >= 4*st.maxQueue {
		if err := o.Flush(); err != nil {
			o.logger.Warn("immediate batch creation failed", logging.Error(err))
		}
	}
	return nil
}

// vet applies the auto-approval safety net in rejection order: caller
// contract, metadata completeness, the stricter confidence floor, the
// categorical delete ban, then the dangerous-path rules.
func vet(sugg suggest.CategorizedSuggestion, meta suggest.FileMetadata, st settings) error {
	if sugg.Category != suggest.CategoryAutoApprove {
		return services.Wrap(services.ErrValidation, component, "enqueue",
			fmt.Sprintf("category %s cannot be auto-approved", sugg.Category), nil)
	}
	if !meta.Complete() {
		return services.Wrap(services.ErrValidation, component, "enqueue",
			fmt.Sprintf("missing file metadata for suggestion %q", sugg.Value), nil)
	}
	if sugg.AdjustedConfidence/100 < st.requireMin {
		return services.Wrap(services.ErrValidation, component, "enqueue",
			fmt.Sprintf("confidence %.0f%% below the %.0f%% auto-approval minimum",
				sugg.AdjustedConfidence, st.requireMin*100), nil)
	}
	if meta.Operation == suggest.OperationDelete {
		return services.Wrap(services.ErrSafety, component, "enqueue",
			"delete operations are never auto-approved", nil)
	}
	if rule, path := matchRules(st.rules, meta); rule != "" {
		return services.Wrap(services.ErrSafety, component, "enqueue",
			fmt.Sprintf("%s matches %s rule, requires manual review", path, rule), nil)
	}
	return nil
}

// Flush drains up to one batch of queued entries and submits them to
// the sink as a single background batch. On submit failure the entries
// return to the front of the queue.
func (o *Orchestrator) Flush() error {
	o.mu.Lock()
	st := o.settings
	if len(o.queue) == 0 {
		o.mu.Unlock()
		return nil
	}
	n := st.maxPerBatch
	if n > len(o.queue) {
		n = len(o.queue)
	}
	consumed := make([]suggest.QueueEntry, n)
	copy(consumed, o.queue[:n])
	rest := make([]suggest.QueueEntry, len(o.queue)-n)
	copy(rest, o.queue[n:])
	o.queue = rest
	o.mu.Unlock()

	ops := make([]suggest.BatchOperation, 0, len(consumed))
	for _, entry := range consumed {
		ops = append(ops, batchOperation(entry))
	}

	ids, err := o.sink.Submit(ops, suggest.BatchBackground)
	if err != nil {
		o.mu.Lock()
		o.queue = append(consumed, o.queue...)
		o.mu.Unlock()
		return services.Wrap(services.ErrExecution, component, "create batch", "submit to scheduler", err)
	}

	o.logger.Info("auto-approval batch created",
		logging.Int("operations", len(ops)),
		logging.Any("batch_ids", ids))
	return nil
}

func batchOperation(entry suggest.QueueEntry) suggest.BatchOperation {
	opType := entry.Metadata.Operation
	switch opType {
	case suggest.OperationRename, suggest.OperationMove:
	default:
		opType = suggest.OperationRename
	}
	return suggest.BatchOperation{
		ID:         uuid.NewString(),
		Type:       opType,
		FileID:     entry.Metadata.FileID,
		SourcePath: entry.Metadata.OriginalPath,
		TargetPath: entry.Metadata.TargetPath,
		Confidence: entry.Suggestion.AdjustedConfidence,
		Priority:   entry.Priority,
		Status:     suggest.OperationPending,
	}
}

// QueueSize reports how many entries await batch creation.
func (o *Orchestrator) QueueSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Snapshot copies the queued entries for status inspection.
func (o *Orchestrator) Snapshot() []suggest.QueueEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]suggest.QueueEntry, len(o.queue))
	copy(out, o.queue)
	return out
}

func (o *Orchestrator) emit(eventType events.Type, payload any) {
	if o.bus == nil {
		return
	}
	o.bus.Emit(eventType, payload)
}
