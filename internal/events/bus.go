package events

import (
	"sync"
	"sync/atomic"
	"time"
)

const defaultBuffer = 64

// Bus fans events out to subscribers over bounded channels. Publishing never
// blocks: when a subscriber's buffer is full the event is dropped for that
// subscriber and counted, so a stalled consumer cannot wedge the pipeline.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]*subscriber
	nextID  int
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

type subscriber struct {
	ch chan Event
}

// NewBus constructs a bus whose subscriber channels buffer the given number
// of events. A non-positive buffer falls back to the default.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Bus{subs: make(map[int]*subscriber), buffer: buffer}
}

// Subscribe registers a new consumer and returns its channel plus a cancel
// function. The channel is closed by cancel or by Close.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	sub := &subscriber{ch: make(chan Event, b.buffer)}
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing.ch)
		}
	}
	return sub.ch, cancel
}

// Publish stamps and delivers the event to every subscriber. Events that do
// not fit a subscriber's buffer are dropped and counted.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Emit is shorthand for Publish with a fresh event of the given type.
func (b *Bus) Emit(eventType Type, payload any) {
	b.Publish(Event{Type: eventType, Payload: payload})
}

// Dropped reports how many events were discarded across all subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close shuts the bus down and closes every subscriber channel. Publishing
// after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
