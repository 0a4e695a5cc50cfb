package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"curator/internal/config"
	"curator/internal/events"
	"curator/internal/logging"
	"curator/internal/services"
)

const component = "notifications"

// Relay subscribes to the event bus and forwards selected events as
// pushes. The [notifications] toggles decide which event families go
// out; a send failure is logged and never blocks the pipeline.
type Relay struct {
	logger   *slog.Logger
	bus      *events.Bus
	notifier Notifier

	batches bool
	review  bool
	errors  bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRelay wires a notifier to the event bus per the configured toggles.
func NewRelay(cfg *config.Config, bus *events.Bus, notifier Notifier, logger *slog.Logger) (*Relay, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "config is required", nil)
	}
	if bus == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "an event bus is required", nil)
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Relay{
		logger:   logging.NewComponentLogger(logger, component),
		bus:      bus,
		notifier: notifier,
		batches:  cfg.Notifications.Batches,
		review:   cfg.Notifications.Review,
		errors:   cfg.Notifications.Errors,
	}, nil
}

// Start subscribes to the bus and begins forwarding.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return services.Wrap(services.ErrContract, component, "start", "relay already running", nil)
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	ch, unsubscribe := r.bus.Subscribe()
	r.wg.Add(1)
	go r.run(runCtx, ch, unsubscribe)
	r.logger.Info("notification relay started",
		logging.Bool("batches", r.batches),
		logging.Bool("review", r.review),
		logging.Bool("errors", r.errors))
	return nil
}

// Stop unsubscribes and waits for the forwarding loop to exit.
func (r *Relay) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

func (r *Relay) run(ctx context.Context, ch <-chan events.Event, unsubscribe func()) {
	defer r.wg.Done()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			r.dispatch(ctx, evt)
		}
	}
}

func (r *Relay) dispatch(ctx context.Context, evt events.Event) {
	var err error
	switch evt.Type {
	case events.TypeBatchCompleted:
		if !r.batches {
			return
		}
		batch, ok := evt.Payload.(events.BatchPayload)
		if !ok {
			return
		}
		err = r.notifier.NotifyBatchCompleted(ctx, batch.BatchID, batch.Completed)
	case events.TypeBatchFailed:
		if !r.batches {
			return
		}
		batch, ok := evt.Payload.(events.BatchPayload)
		if !ok {
			return
		}
		err = r.notifier.NotifyBatchFailed(ctx, batch.BatchID, batch.Completed, batch.Failed)
	case events.TypeSuggestionsProcessed:
		if !r.review {
			return
		}
		processed, ok := evt.Payload.(events.ProcessedPayload)
		if !ok || processed.Queued == 0 {
			return
		}
		err = r.notifier.NotifyReviewBacklog(ctx, processed.Queued)
	case events.TypeTransactionRolledBack:
		if !r.errors {
			return
		}
		rollback, ok := evt.Payload.(events.RollbackPayload)
		if !ok {
			return
		}
		err = r.notifier.NotifyError(ctx,
			fmt.Errorf("transaction %s rolled back %d of %d operations", rollback.TransactionID, rollback.RolledBack, rollback.Applied),
			"file operations")
	case events.TypeQueueCapacity:
		if !r.errors {
			return
		}
		capacity, ok := evt.Payload.(events.CapacityPayload)
		if !ok {
			return
		}
		err = r.notifier.NotifyError(ctx,
			fmt.Errorf("%s queue at capacity (%d/%d)", capacity.Queue, capacity.Size, capacity.Capacity),
			"queue pressure")
	default:
		return
	}

	if err != nil {
		logging.WarnWithContext(r.logger, "notification send failed", "notification_failed",
			logging.String("bus_event", string(evt.Type)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ntfy_topic and network reachability"))
	}
}
