package clock

import "time"

// Clock abstracts time sources so periodic work can run against virtual time
// in tests. Production code uses Real; tests use Fake and advance it manually.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker mirrors time.Ticker behind an interface so fakes can deliver ticks
// on demand.
type Ticker interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

// Real is a Clock backed by the time package.
type Real struct{}

// NewReal returns the production clock.
func NewReal() Real { return Real{} }

func (Real) Now() time.Time { return time.Now() }

func (Real) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time { return t.ticker.C }

func (t *realTicker) Reset(d time.Duration) { t.ticker.Reset(d) }

func (t *realTicker) Stop() { t.ticker.Stop() }
