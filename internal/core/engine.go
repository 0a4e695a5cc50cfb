package core

import (
	"context"
	"log/slog"
	"time"

	"curator/internal/approval"
	"curator/internal/batch"
	"curator/internal/config"
	"curator/internal/events"
	"curator/internal/executor"
	"curator/internal/logging"
	"curator/internal/policy"
	"curator/internal/resources"
	"curator/internal/review"
	"curator/internal/scoring"
	"curator/internal/services"
	"curator/internal/store"
)

const component = "core"

// Engine wires the suggestion pipeline end to end: scoring,
// categorization, the approval and review queues, the batch scheduler,
// and the transactional executor. It is the only entry point the CLI
// and the daemon talk to.
type Engine struct {
	cfg     *config.Config
	logger  *slog.Logger
	bus     *events.Bus
	journal *store.Store

	scorer    *scoring.Scorer
	filter    *policy.Filter
	approvals *approval.Orchestrator
	reviews   *review.Queue
	scheduler *batch.Scheduler
	exec      *executor.Executor
}

// New builds an engine from config. The journal may be nil, which
// disables suggestion history, audit persistence, and undo.
func New(cfg *config.Config, journal *store.Store, bus *events.Bus, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "config is required", nil)
	}

	scorer, err := scoring.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	filter, err := policy.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	exec, err := executor.New(cfg, bus, logger)
	if err != nil {
		return nil, err
	}
	monitor := resources.NewMonitor(cfg, logger)
	scheduler, err := batch.New(cfg, exec, journal, monitor, bus, logger)
	if err != nil {
		return nil, err
	}
	approvals, err := approval.New(cfg, scheduler, bus, logger)
	if err != nil {
		return nil, err
	}
	reviews, err := review.New(cfg, journal, bus, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, component),
		bus:       bus,
		journal:   journal,
		scorer:    scorer,
		filter:    filter,
		approvals: approvals,
		reviews:   reviews,
		scheduler: scheduler,
		exec:      exec,
	}, nil
}

// Start launches the batch scheduler and the auto-approval timer.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.scheduler.Start(ctx); err != nil {
		return err
	}
	if err := e.approvals.Start(ctx); err != nil {
		e.scheduler.Stop()
		return err
	}
	e.logger.Info("engine started")
	return nil
}

// Close stops the approval timer first so no new batches form, then
// drains the scheduler.
func (e *Engine) Close() error {
	err := e.approvals.Close()
	e.scheduler.Stop()
	e.logger.Info("engine stopped")
	return err
}

// UpdateConfig applies approval-policy changes to the running pipeline.
func (e *Engine) UpdateConfig(cfg *config.Config) error {
	return e.approvals.UpdateConfig(cfg)
}

// Status is a point-in-time snapshot of the pipeline's queues.
type Status struct {
	ApprovalQueue    int
	ReviewPending    int
	ReviewReviewed   int
	StagedOperations int
	WaitingBatches   int
	ActiveBatches    int
}

// Status reports queue depths across the pipeline.
func (e *Engine) Status() Status {
	pending, reviewed := e.reviews.Counts()
	staged, waiting, active := e.scheduler.Counts()
	return Status{
		ApprovalQueue:    e.approvals.QueueSize(),
		ReviewPending:    pending,
		ReviewReviewed:   reviewed,
		StagedOperations: staged,
		WaitingBatches:   waiting,
		ActiveBatches:    active,
	}
}

// Maintenance runs one housekeeping pass: expired review entries,
// journal rows past the retention window, and retained backups past
// theirs.
func (e *Engine) Maintenance(ctx context.Context) {
	removed := e.reviews.Cleanup()

	var pruned int64
	if e.journal != nil && e.cfg.Review.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -e.cfg.Review.RetentionDays)
		n, err := e.journal.PruneOlderThan(ctx, cutoff)
		if err != nil {
			e.logger.Warn("journal prune failed", logging.Error(err))
		} else {
			pruned = n
		}
	}

	var backups int
	if e.cfg.Executor.BackupRetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -e.cfg.Executor.BackupRetentionDays)
		n, err := e.exec.PruneBackups(cutoff)
		if err != nil {
			e.logger.Warn("backup prune failed", logging.Error(err))
		}
		backups = n
	}

	if removed > 0 || pruned > 0 || backups > 0 {
		e.logger.Info("maintenance pass completed",
			logging.Int("review_entries", removed),
			logging.Int64("journal_rows", pruned),
			logging.Int("backup_dirs", backups))
	}
}
