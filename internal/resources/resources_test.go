package resources

import (
	"errors"
	"testing"

	"curator/internal/logging"
	"curator/internal/testsupport"
)

var errStatfs = errors.New("statfs unavailable")

func testMonitor(t *testing.T, cpus int, load float64, total, free uint64) *Monitor {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	m := NewMonitor(cfg, logging.NewNop())
	m.numCPU = func() int { return cpus }
	m.loadavg = func() (float64, bool) { return load, true }
	m.statfs = func(string) (uint64, uint64, error) { return total, free, nil }
	return m
}

func TestHintUsesCPUCountWhenIdle(t *testing.T) {
	m := testMonitor(t, 8, 1.0, 1000, 800)
	if got := m.Hint(); got != 8 {
		t.Fatalf("expected hint 8, got %d", got)
	}
}

func TestHintHalvesUnderLoad(t *testing.T) {
	m := testMonitor(t, 8, 12.5, 1000, 800)
	if got := m.Hint(); got != 4 {
		t.Fatalf("expected hint 4 under load, got %d", got)
	}
}

func TestHintDropsToOneWhenDiskNearlyFull(t *testing.T) {
	m := testMonitor(t, 8, 1.0, 1000, 20)
	if got := m.Hint(); got != 1 {
		t.Fatalf("expected hint 1 with full disk, got %d", got)
	}
}

func TestHintNeverBelowOne(t *testing.T) {
	m := testMonitor(t, 1, 99, 1000, 800)
	if got := m.Hint(); got != 1 {
		t.Fatalf("expected hint floor of 1, got %d", got)
	}
}

func TestSnapshotSurvivesStatfsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	m := NewMonitor(cfg, logging.NewNop())
	m.numCPU = func() int { return 4 }
	m.loadavg = func() (float64, bool) { return 0.5, true }
	m.statfs = func(string) (uint64, uint64, error) {
		return 0, 0, errStatfs
	}

	snap := m.Snapshot()
	if snap.CPUs != 4 || snap.TotalBytes != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if got := m.Hint(); got != 4 {
		t.Fatalf("expected hint from CPUs alone, got %d", got)
	}
}
