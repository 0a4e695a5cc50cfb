package daemon

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"curator/internal/resources"
)

// Health summarizes the readiness of one daemon dependency.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs a failed Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Health probes the daemon's dependencies: the journal database, the
// working directories, free space on the staging device, and queue
// headroom. It works on a constructed daemon whether or not Start has
// been called.
func (d *Daemon) Health(ctx context.Context) []Health {
	checks := []Health{
		d.journalHealth(ctx),
		dirHealth("staging", d.cfg.Paths.StagingDir),
		dirHealth("data", d.cfg.Paths.DataDir),
	}
	if d.scanner != nil {
		checks = append(checks, dirHealth("inbox", d.cfg.Paths.InboxDir))
	}
	return append(checks, d.diskHealth(), d.schedulerHealth(), d.reviewHealth())
}

func (d *Daemon) journalHealth(ctx context.Context) Health {
	h, err := d.journal.CheckHealth(ctx)
	if err != nil {
		return Unhealthy("journal", err.Error())
	}
	if !h.DatabaseExists {
		return Unhealthy("journal", "database file missing at "+h.DBPath)
	}
	if !h.TablesPresent {
		return Unhealthy("journal", "schema tables missing")
	}
	return Healthy("journal")
}

// dirHealth confirms the directory exists and accepts writes. The probe
// file is removed immediately.
func dirHealth(name, path string) Health {
	if path == "" {
		return Unhealthy(name, "path not configured")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Unhealthy(name, err.Error())
	}
	if !info.IsDir() {
		return Unhealthy(name, path+" is not a directory")
	}
	probe, err := os.CreateTemp(path, ".curator-health-*")
	if err != nil {
		return Unhealthy(name, "not writable: "+err.Error())
	}
	probe.Close()
	os.Remove(probe.Name())
	h := Healthy(name)
	h.Detail = path
	return h
}

func (d *Daemon) diskHealth() Health {
	snap := d.monitor.Snapshot()
	if snap.TotalBytes == 0 {
		return Unhealthy("disk", "free space probe failed on the staging device")
	}
	if snap.FreeRatio < resources.MinFreeRatio {
		return Unhealthy("disk", fmt.Sprintf("staging device nearly full: %s free (%.1f%%)", humanize.IBytes(snap.FreeBytes), snap.FreeRatio*100))
	}
	h := Healthy("disk")
	h.Detail = fmt.Sprintf("%s free (%.1f%%)", humanize.IBytes(snap.FreeBytes), snap.FreeRatio*100)
	return h
}

func (d *Daemon) schedulerHealth() Health {
	st := d.engine.Status()
	h := Healthy("scheduler")
	h.Detail = fmt.Sprintf("%d staged, %d waiting, %d active", st.StagedOperations, st.WaitingBatches, st.ActiveBatches)
	return h
}

func (d *Daemon) reviewHealth() Health {
	st := d.engine.Status()
	capacity := d.cfg.Review.MaxQueueSize
	if capacity > 0 && st.ReviewPending+st.ReviewReviewed >= capacity {
		return Unhealthy("review", fmt.Sprintf("queue full: %d of %d entries", st.ReviewPending+st.ReviewReviewed, capacity))
	}
	h := Healthy("review")
	h.Detail = fmt.Sprintf("%d pending, %d reviewed", st.ReviewPending, st.ReviewReviewed)
	return h
}
