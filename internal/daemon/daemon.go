package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"curator/internal/clock"
	"curator/internal/config"
	"curator/internal/core"
	"curator/internal/events"
	"curator/internal/ingest"
	"curator/internal/logging"
	"curator/internal/notifications"
	"curator/internal/resources"
	"curator/internal/services"
	"curator/internal/store"
)

const component = "daemon"

// LockFileName is the flock file guarding single-instance execution,
// created under paths.data_dir.
const LockFileName = "curator.lock"

// maintenanceInterval is how often the engine housekeeping pass runs
// while the daemon is up. The first pass runs at startup.
const maintenanceInterval = 6 * time.Hour

// Daemon owns the long-running curator process: the pipeline engine,
// the inbox scanner, the notification relay, and the event log, all
// serialized behind a file lock so only one instance touches the
// journal and the staging tree.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	bus     *events.Bus
	journal *store.Store
	engine  *core.Engine
	scanner *ingest.Scanner
	relay   *notifications.Relay
	monitor *resources.Monitor

	clk      clock.Clock
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New assembles the daemon and its components. The journal store
// passes into the daemon's ownership; Close releases it.
func New(cfg *config.Config, journal *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || journal == nil || logger == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "config, journal store, and logger are required", nil)
	}

	bus := events.NewBus(64)
	engine, err := core.New(cfg, journal, bus, logger)
	if err != nil {
		return nil, err
	}

	var scanner *ingest.Scanner
	if cfg.Ingest.Enabled {
		scanner, err = ingest.New(cfg, engine, logger)
		if err != nil {
			return nil, err
		}
	}

	relay, err := notifications.NewRelay(cfg, bus, notifications.NewNotifier(cfg), logger)
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, LockFileName)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, component),
		bus:      bus,
		journal:  journal,
		engine:   engine,
		scanner:  scanner,
		relay:    relay,
		monitor:  resources.NewMonitor(cfg, logger),
		clk:      clock.NewReal(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and brings every component up. The
// event log and the notification relay subscribe before the engine
// starts so nothing published during startup is missed.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return services.Wrap(services.ErrContract, component, "start", "daemon already running", nil)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrExecution, component, "start", "acquire instance lock", err)
	}
	if !ok {
		return services.Wrap(services.ErrContract, component, "start",
			fmt.Sprintf("another curator instance holds %s", d.lockPath), nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	ch, unsubscribe := d.bus.Subscribe()
	d.wg.Add(1)
	go d.logEvents(runCtx, ch, unsubscribe)

	if err := d.relay.Start(runCtx); err != nil {
		d.abortStart()
		return err
	}
	if err := d.engine.Start(runCtx); err != nil {
		d.relay.Stop()
		d.abortStart()
		return err
	}
	if d.scanner != nil {
		if err := d.scanner.Start(runCtx); err != nil {
			if closeErr := d.engine.Close(); closeErr != nil {
				d.logger.Warn("engine close during aborted start", logging.Error(closeErr))
			}
			d.relay.Stop()
			d.abortStart()
			return err
		}
	}

	d.wg.Add(1)
	go d.maintenanceLoop(runCtx)

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// abortStart unwinds partial startup state after a component failed.
func (d *Daemon) abortStart() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release instance lock", logging.Error(err))
	}
}

// Stop shuts components down input-first so nothing new enters the
// pipeline while it drains, then releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.scanner != nil {
		d.scanner.Stop()
	}
	if err := d.engine.Close(); err != nil {
		d.logger.Warn("engine close", logging.Error(err))
	}
	d.relay.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release instance lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases the journal store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Engine exposes the pipeline for callers that hold the daemon, such
// as the run loop's on-demand status output.
func (d *Daemon) Engine() *core.Engine {
	return d.engine
}

// Status reports the daemon's runtime state.
type Status struct {
	Running       bool
	Pipeline      core.Status
	InboxIngested int
	InboxFailed   int
	JournalPath   string
	LockFilePath  string
}

// Status returns a point-in-time snapshot of the daemon and its queues.
func (d *Daemon) Status() Status {
	st := Status{
		Running:      d.running.Load(),
		Pipeline:     d.engine.Status(),
		JournalPath:  d.journal.Path(),
		LockFilePath: d.lockPath,
	}
	if d.scanner != nil {
		st.InboxIngested, st.InboxFailed = d.scanner.Counts()
	}
	return st
}

func (d *Daemon) maintenanceLoop(ctx context.Context) {
	defer d.wg.Done()

	d.engine.Maintenance(ctx)

	ticker := d.clk.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			d.engine.Maintenance(ctx)
		}
	}
}
