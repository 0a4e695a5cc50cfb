package clock

import (
	"sync"
	"time"
)

// Fake is a Clock whose time only moves when Advance is called. Tickers
// created from it fire as advanced time crosses their deadlines, which lets
// tests drive timer-based behaviour deterministically.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

// NewFake returns a Fake clock starting at a fixed, arbitrary instant.
func NewFake() *Fake {
	return &Fake{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{
		clock:  f,
		ch:     make(chan time.Time, 1),
		period: d,
		next:   f.now.Add(d),
	}
	f.tickers = append(f.tickers, t)
	return t
}

// Advance moves the clock forward and delivers ticks for every ticker whose
// deadline was crossed. Delivery is non-blocking: a ticker that has not been
// drained keeps a single pending tick, matching time.Ticker semantics.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now
	tickers := make([]*fakeTicker, len(f.tickers))
	copy(tickers, f.tickers)
	f.mu.Unlock()

	for _, t := range tickers {
		t.advanceTo(now)
	}
}

// BlockUntilTickers waits until the clock has at least n registered tickers.
// Tests use it to avoid racing Advance against ticker construction in the
// code under test.
func (f *Fake) BlockUntilTickers(n int) {
	for {
		f.mu.Lock()
		count := 0
		for _, t := range f.tickers {
			if !t.stopped() {
				count++
			}
		}
		f.mu.Unlock()
		if count >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

type fakeTicker struct {
	clock  *Fake
	ch     chan time.Time
	mu     sync.Mutex
	period time.Duration
	next   time.Time
	done   bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Reset(d time.Duration) {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.period = d
	t.next = now.Add(d)
	t.done = false
}

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
}

func (t *fakeTicker) stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *fakeTicker) advanceTo(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done || t.period <= 0 {
		return
	}
	fired := false
	for !t.next.After(now) {
		t.next = t.next.Add(t.period)
		fired = true
	}
	if !fired {
		return
	}
	select {
	case t.ch <- now:
	default:
	}
}
