package resources

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"curator/internal/config"
	"curator/internal/logging"
)

// Monitor probes host capacity and turns it into a concurrency hint for
// batch execution.
type Monitor struct {
	logger  *slog.Logger
	path    string
	statfs  func(path string) (total, free uint64, err error)
	loadavg func() (float64, bool)
	numCPU  func() int
}

// NewMonitor builds a monitor watching the staging device.
func NewMonitor(cfg *config.Config, logger *slog.Logger) *Monitor {
	path := "/"
	if cfg != nil && strings.TrimSpace(cfg.Paths.StagingDir) != "" {
		path = cfg.Paths.StagingDir
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		logger:  logging.NewComponentLogger(logger, "resources"),
		path:    path,
		statfs:  realStatfs,
		loadavg: readLoadavg,
		numCPU:  runtime.NumCPU,
	}
}

// Snapshot is a point-in-time view of host capacity. Probe failures
// leave the affected fields at zero rather than failing the call.
type Snapshot struct {
	CPUs       int
	Load1      float64
	TotalBytes uint64
	FreeBytes  uint64
	FreeRatio  float64
}

// Snapshot probes CPU count, 1-minute load, and free space on the
// staging device.
func (m *Monitor) Snapshot() Snapshot {
	snap := Snapshot{CPUs: m.numCPU()}
	if load, ok := m.loadavg(); ok {
		snap.Load1 = load
	}
	total, free, err := m.statfs(m.path)
	if err != nil {
		m.logger.Warn("free space probe failed",
			logging.Error(err),
			logging.String("path", m.path))
		return snap
	}
	snap.TotalBytes = total
	snap.FreeBytes = free
	if total > 0 {
		snap.FreeRatio = float64(free) / float64(total)
	}
	return snap
}

// MinFreeRatio is the fraction of free disk below which execution drops
// to a single concurrent operation and health checks flag the device.
const MinFreeRatio = 0.05

// Hint returns how many operations the host can comfortably run at
// once: the CPU count, halved while the 1-minute load exceeds it, and
// one when the staging device is nearly full. Always at least 1.
func (m *Monitor) Hint() int {
	snap := m.Snapshot()
	hint := snap.CPUs
	if hint < 1 {
		hint = 1
	}
	if snap.Load1 > float64(snap.CPUs) && hint > 1 {
		hint /= 2
	}
	if snap.TotalBytes > 0 && snap.FreeRatio < MinFreeRatio {
		hint = 1
	}
	if hint < 1 {
		hint = 1
	}
	return hint
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

func readLoadavg() (float64, bool) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, false
	}
	load, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return load, true
}
