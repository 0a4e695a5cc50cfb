package clock_test

import (
	"testing"
	"time"

	"curator/internal/clock"
)

func TestFakeAdvanceFiresTicker(t *testing.T) {
	fake := clock.NewFake()
	ticker := fake.NewTicker(2 * time.Second)
	defer ticker.Stop()

	select {
	case <-ticker.C():
		t.Fatal("ticker fired before advance")
	default:
	}

	fake.Advance(time.Second)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired before period elapsed")
	default:
	}

	fake.Advance(time.Second)
	select {
	case <-ticker.C():
	default:
		t.Fatal("expected tick after period elapsed")
	}
}

func TestFakeTickerCoalescesMissedTicks(t *testing.T) {
	fake := clock.NewFake()
	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	fake.Advance(5 * time.Second)

	select {
	case <-ticker.C():
	default:
		t.Fatal("expected pending tick")
	}
	select {
	case <-ticker.C():
		t.Fatal("expected missed ticks coalesced into one")
	default:
	}
}

func TestFakeTickerResetReschedules(t *testing.T) {
	fake := clock.NewFake()
	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	ticker.Reset(10 * time.Second)
	fake.Advance(5 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired before reset period elapsed")
	default:
	}

	fake.Advance(5 * time.Second)
	select {
	case <-ticker.C():
	default:
		t.Fatal("expected tick after reset period elapsed")
	}
}

func TestFakeTickerStopSuppressesTicks(t *testing.T) {
	fake := clock.NewFake()
	ticker := fake.NewTicker(time.Second)
	ticker.Stop()

	fake.Advance(3 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker should not fire")
	default:
	}
}

func TestFakeNowAdvances(t *testing.T) {
	fake := clock.NewFake()
	start := fake.Now()
	fake.Advance(90 * time.Minute)
	if got := fake.Now().Sub(start); got != 90*time.Minute {
		t.Fatalf("expected 90m elapsed, got %v", got)
	}
}

func TestRealTickerDelivers(t *testing.T) {
	real := clock.NewReal()
	ticker := real.NewTicker(time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("expected real ticker to fire")
	}
}
