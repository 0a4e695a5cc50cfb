package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"curator/internal/clock"
	"curator/internal/config"
	"curator/internal/core"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/suggest"
)

const component = "ingest"

// Subdirectories of the inbox that hold finished files.
const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Processor receives the decoded contents of one inbox file. *core.Engine
// is the production implementation.
type Processor interface {
	ProcessSuggestions(ctx context.Context, suggestions map[string][]suggest.RawSuggestion, metadata map[string]suggest.FileMetadata) (core.ProcessReport, error)
}

// Scanner polls the inbox directory for suggestion batch files and feeds
// them to the engine. Files that ingest cleanly move to processed/;
// files that fail decoding or validation move to failed/ next to a
// .reason.txt explaining why.
type Scanner struct {
	logger   *slog.Logger
	proc     Processor
	clk      clock.Clock
	inbox    string
	interval time.Duration

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	processed int
	failed    int
}

// New builds a scanner over the configured inbox directory.
func New(cfg *config.Config, proc Processor, logger *slog.Logger) (*Scanner, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "config is required", nil)
	}
	if proc == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "a suggestion processor is required", nil)
	}
	return &Scanner{
		logger:   logging.NewComponentLogger(logger, component),
		proc:     proc,
		clk:      clock.NewReal(),
		inbox:    cfg.Paths.InboxDir,
		interval: cfg.PollInterval(),
	}, nil
}

// Start launches the polling loop. The first sweep runs immediately.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return services.Wrap(services.ErrContract, component, "start", "scanner already running", nil)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.run(runCtx)
	s.logger.Info("inbox scanner started",
		logging.String("inbox", s.inbox),
		logging.Duration("poll_interval", s.interval))
	return nil
}

// Stop halts polling and waits for an in-flight sweep to finish.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("inbox scanner stopped")
}

func (s *Scanner) run(ctx context.Context) {
	defer s.wg.Done()

	s.sweep(ctx)

	ticker := s.clk.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.sweep(ctx)
		}
	}
}

func (s *Scanner) sweep(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		logging.WarnWithContext(s.logger, "inbox sweep failed", "inbox_sweep_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the inbox directory exists and is readable"))
	}
}

// Sweep ingests every batch file currently in the inbox and reports how
// many ingested cleanly. A missing inbox directory is not an error;
// the next sweep retries.
func (s *Scanner) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, services.Wrap(services.ErrExecution, component, "sweep", "read inbox", err)
	}

	ingested := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return ingested, nil
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(s.inbox, entry.Name())
		if err := s.ingestFile(ctx, path); err != nil {
			s.recordFailure(path, err)
			continue
		}
		ingested++
	}
	return ingested, nil
}

func (s *Scanner) ingestFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.Wrap(services.ErrExecution, component, "ingest", "read batch file", err)
	}

	suggestions, metadata, err := ParseBatch(data)
	if err != nil {
		return err
	}

	report, err := s.proc.ProcessSuggestions(ctx, suggestions, metadata)
	if err != nil {
		return services.Wrap(services.ErrExecution, component, "ingest", "process suggestions", err)
	}

	if err := s.archive(path, processedDir); err != nil {
		return err
	}
	s.mu.Lock()
	s.processed++
	s.mu.Unlock()

	s.logger.Info("ingested suggestion batch",
		logging.String("file", filepath.Base(path)),
		logging.Int("files", len(suggestions)),
		logging.Int("auto_approved", report.AutoApproved),
		logging.Int("queued", report.Queued),
		logging.Int("rejected", report.Rejected))
	return nil
}

// recordFailure moves a bad file to failed/ with a reason file. The
// original stays in the inbox only if even the move fails, so a
// persistently broken file cannot wedge the sweep loop.
func (s *Scanner) recordFailure(path string, cause error) {
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()

	logging.WarnWithContext(s.logger, "suggestion batch rejected", "ingest_failed",
		logging.String("file", filepath.Base(path)),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "see the .reason.txt next to the file under failed/"))

	if err := s.archive(path, failedDir); err != nil {
		s.logger.Warn("failed to quarantine batch file", logging.Error(err))
		return
	}
	reason := filepath.Join(s.inbox, failedDir, filepath.Base(path)+".reason.txt")
	if err := os.WriteFile(reason, []byte(cause.Error()+"\n"), 0o644); err != nil {
		s.logger.Warn("failed to write reason file", logging.Error(err))
	}
}

// archive moves a file into an inbox subdirectory, timestamping the name
// when a previous file with the same name is already there.
func (s *Scanner) archive(path, subdir string) error {
	dir := filepath.Join(s.inbox, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrExecution, component, "archive", "create archive directory", err)
	}
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Lstat(target); err == nil {
		base := filepath.Base(path)
		target = filepath.Join(dir, s.clk.Now().UTC().Format("20060102T150405.000000000")+"-"+base)
	}
	if err := os.Rename(path, target); err != nil {
		return services.Wrap(services.ErrExecution, component, "archive", "move batch file", err)
	}
	return nil
}

// Counts reports how many inbox files have ingested cleanly and how
// many were quarantined since the scanner was built.
func (s *Scanner) Counts() (processed, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed, s.failed
}
