package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/core"
	"curator/internal/daemon"
	"curator/internal/events"
	"curator/internal/logging"
	"curator/internal/store"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// withJournal opens the journal database for the duration of one command.
func (c *commandContext) withJournal(fn func(cfg *config.Config, journal *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	journal, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()
	return fn(cfg, journal)
}

// newSessionEngine builds an engine for a one-shot command. Session
// logs go to a shared file under the log directory so command output
// stays clean; retention prunes the file with the daemon's run logs.
func newSessionEngine(cfg *config.Config, journal *store.Store) (*core.Engine, *slog.Logger, error) {
	logPath := filepath.Join(cfg.Paths.LogDir, "curator-cli.log")
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init session logger: %w", err)
	}
	eng, err := core.New(cfg, journal, events.NewBus(8), logger)
	if err != nil {
		return nil, nil, err
	}
	return eng, logger, nil
}

// daemonRunning probes the daemon's instance lock without keeping it.
func daemonRunning(cfg *config.Config) (bool, error) {
	lockPath := filepath.Join(cfg.Paths.DataDir, daemon.LockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe instance lock %s: %w", lockPath, err)
	}
	if !ok {
		return true, nil
	}
	if err := lock.Unlock(); err != nil {
		return false, fmt.Errorf("release instance lock %s: %w", lockPath, err)
	}
	return false, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
