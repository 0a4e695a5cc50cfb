package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"curator/internal/config"
	"curator/internal/events"
	"curator/internal/logging"
)

type recordingNotifier struct {
	mu       sync.Mutex
	sent     []string
	backlogs []int
	signal   chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{signal: make(chan struct{}, 16)}
}

func (r *recordingNotifier) record(kind string) {
	r.mu.Lock()
	r.sent = append(r.sent, kind)
	r.mu.Unlock()
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *recordingNotifier) NotifyBatchCompleted(_ context.Context, _ string, _ int) error {
	r.record("batch-completed")
	return nil
}

func (r *recordingNotifier) NotifyBatchFailed(_ context.Context, _ string, _, _ int) error {
	r.record("batch-failed")
	return nil
}

func (r *recordingNotifier) NotifyReviewBacklog(_ context.Context, queued int) error {
	r.mu.Lock()
	r.backlogs = append(r.backlogs, queued)
	r.mu.Unlock()
	r.record("review-backlog")
	return nil
}

func (r *recordingNotifier) NotifyError(_ context.Context, _ error, _ string) error {
	r.record("error")
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error {
	r.record("test")
	return nil
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *recordingNotifier) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		r.mu.Lock()
		count := len(r.sent)
		r.mu.Unlock()
		if count >= n {
			return
		}
		select {
		case <-r.signal:
		case <-deadline:
			t.Fatalf("timed out waiting for %d notifications, have %d", n, count)
		}
	}
}

func startRelay(t *testing.T, bus *events.Bus, notifier Notifier, mutate func(*config.Config)) *Relay {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	relay, err := NewRelay(&cfg, bus, notifier, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRelay: %v", err)
	}
	if err := relay.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(relay.Stop)
	return relay
}

func TestRelayForwardsSelectedEvents(t *testing.T) {
	bus := events.NewBus(16)
	notifier := newRecordingNotifier()
	startRelay(t, bus, notifier, nil)

	bus.Emit(events.TypeBatchCompleted, events.BatchPayload{BatchID: "b-1", Completed: 3})
	bus.Emit(events.TypeBatchFailed, events.BatchPayload{BatchID: "b-2", Completed: 1, Failed: 2})
	bus.Emit(events.TypeSuggestionsProcessed, events.ProcessedPayload{AutoApproved: 1, Queued: 5})
	bus.Emit(events.TypeTransactionRolledBack, events.RollbackPayload{TransactionID: "t-1", Applied: 2, RolledBack: 2})
	bus.Emit(events.TypeQueueCapacity, events.CapacityPayload{Queue: "approval", Size: 500, Capacity: 500})
	// Events outside the forwarded set stay internal.
	bus.Emit(events.TypeBatchStarted, events.BatchPayload{BatchID: "b-3"})
	bus.Emit(events.TypeSuggestionsProcessed, events.ProcessedPayload{AutoApproved: 2, Queued: 0})

	notifier.waitFor(t, 5)
	kinds := notifier.kinds()
	want := []string{"batch-completed", "batch-failed", "review-backlog", "error", "error"}
	if len(kinds) != len(want) {
		t.Fatalf("notifications = %v, want %v", kinds, want)
	}
	for i, kind := range want {
		if kinds[i] != kind {
			t.Fatalf("notification %d = %s, want %s", i, kinds[i], kind)
		}
	}
	if len(notifier.backlogs) != 1 || notifier.backlogs[0] != 5 {
		t.Fatalf("backlogs = %v, want [5]", notifier.backlogs)
	}
}

func TestRelayHonorsToggles(t *testing.T) {
	bus := events.NewBus(16)
	notifier := newRecordingNotifier()
	startRelay(t, bus, notifier, func(cfg *config.Config) {
		cfg.Notifications.Batches = false
		cfg.Notifications.Errors = false
	})

	bus.Emit(events.TypeBatchCompleted, events.BatchPayload{BatchID: "b-1", Completed: 3})
	bus.Emit(events.TypeQueueCapacity, events.CapacityPayload{Queue: "approval", Size: 500, Capacity: 500})
	bus.Emit(events.TypeSuggestionsProcessed, events.ProcessedPayload{Queued: 2})

	notifier.waitFor(t, 1)
	kinds := notifier.kinds()
	if len(kinds) != 1 || kinds[0] != "review-backlog" {
		t.Fatalf("notifications = %v, want only review-backlog", kinds)
	}
}

func TestRelayStartStop(t *testing.T) {
	bus := events.NewBus(4)
	notifier := newRecordingNotifier()
	cfg := config.Default()
	relay, err := NewRelay(&cfg, bus, notifier, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRelay: %v", err)
	}

	if err := relay.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := relay.Start(context.Background()); err == nil {
		t.Fatal("second Start succeeded")
	}
	relay.Stop()
	relay.Stop()

	if err := relay.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	relay.Stop()
}
