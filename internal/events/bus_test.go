package events_test

import (
	"testing"
	"time"

	"curator/internal/events"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := events.NewBus(4)
	defer bus.Close()

	first, cancelFirst := bus.Subscribe()
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe()
	defer cancelSecond()

	bus.Emit(events.TypeBatchQueued, events.BatchPayload{BatchID: "b1", Total: 3})

	for name, ch := range map[string]<-chan events.Event{"first": first, "second": second} {
		select {
		case event := <-ch:
			if event.Type != events.TypeBatchQueued {
				t.Fatalf("%s subscriber: unexpected type %s", name, event.Type)
			}
			payload, ok := event.Payload.(events.BatchPayload)
			if !ok || payload.BatchID != "b1" {
				t.Fatalf("%s subscriber: unexpected payload %+v", name, event.Payload)
			}
			if event.Timestamp.IsZero() {
				t.Fatalf("%s subscriber: expected timestamp stamped", name)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s subscriber: no event delivered", name)
		}
	}
}

func TestFullSubscriberBufferDropsAndCounts(t *testing.T) {
	bus := events.NewBus(1)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Emit(events.TypeOperationStarted, nil)
	bus.Emit(events.TypeOperationCompleted, nil)

	if got := bus.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped event, got %d", got)
	}

	event := <-ch
	if event.Type != events.TypeOperationStarted {
		t.Fatalf("expected first event retained, got %s", event.Type)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	bus := events.NewBus(4)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after cancel")
	}

	// Publishing to a cancelled subscriber must not panic.
	bus.Emit(events.TypeBatchStarted, nil)
}

func TestCloseClosesSubscribers(t *testing.T) {
	bus := events.NewBus(4)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Close()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after bus close")
	}

	// Publish and subscribe after close are inert.
	bus.Emit(events.TypeBatchFailed, nil)
	late, lateCancel := bus.Subscribe()
	defer lateCancel()
	if _, ok := <-late; ok {
		t.Fatal("expected closed channel for late subscriber")
	}
}
