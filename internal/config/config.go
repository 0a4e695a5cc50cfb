package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	DataDir    string `toml:"data_dir"`
	InboxDir   string `toml:"inbox_dir"`
}

// Scoring contains weights and limits for suggestion scoring.
type Scoring struct {
	StructuralWeight  float64 `toml:"structural_weight"`
	AlignmentWeight   float64 `toml:"alignment_weight"`
	ConsistencyWeight float64 `toml:"consistency_weight"`
	ConventionWeight  float64 `toml:"convention_weight"`
	MaxPerFile        int     `toml:"max_per_file"`
}

// Policy contains confidence threshold configuration for categorization.
type Policy struct {
	Profile            string  `toml:"profile"`
	CustomThreshold    float64 `toml:"custom_threshold"`
	AutoApproveEnabled bool    `toml:"auto_approve_enabled"`
	MaxAutoApprove     int     `toml:"max_auto_approve"`
}

// Approval contains auto-approval orchestrator settings.
type Approval struct {
	RequireMinConfidence float64  `toml:"require_min_confidence"`
	MaxQueueSize         int      `toml:"max_queue_size"`
	MaxPerBatch          int      `toml:"max_per_batch"`
	BatchIntervalSeconds int      `toml:"batch_interval_seconds"`
	DangerousPathGlobs   []string `toml:"dangerous_path_globs"`
}

// Review contains manual review queue settings.
type Review struct {
	MaxQueueSize  int `toml:"max_queue_size"`
	BatchSize     int `toml:"batch_size"`
	RetentionDays int `toml:"retention_days"`
}

// Batch contains batch scheduler settings.
type Batch struct {
	MaxBatchSize            int `toml:"max_batch_size"`
	MaxConcurrentOperations int `toml:"max_concurrent_operations"`
	InteractiveWeight       int `toml:"interactive_weight"`
	BackgroundWeight        int `toml:"background_weight"`
	OperationTimeoutSeconds int `toml:"operation_timeout_seconds"`
}

// Executor contains transactional executor settings.
type Executor struct {
	CreateBackups       bool `toml:"create_backups"`
	BackupRetentionDays int  `toml:"backup_retention_days"`
}

// Ingest contains inbox scanning settings.
type Ingest struct {
	Enabled             bool `toml:"enabled"`
	PollIntervalSeconds int  `toml:"poll_interval_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Batches        bool   `toml:"batches"`
	Review         bool   `toml:"review"`
	Errors         bool   `toml:"errors"`
}

// Config encapsulates all configuration values for curator.
//
// Configuration sections by subsystem:
//   - Paths: staging, log, data, and inbox directories
//   - Scoring: component weights and per-file suggestion limits
//   - Policy: confidence threshold profile and auto-approve toggles
//   - Approval: auto-approval queue bounds and batch trigger timing
//   - Review: manual review queue bounds and retention
//   - Batch: scheduler sizing and concurrency limits
//   - Executor: backup behaviour for destructive operations
//   - Ingest: suggestion inbox polling
//   - Logging: log format, level, and retention
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Scoring       Scoring       `toml:"scoring"`
	Policy        Policy        `toml:"policy"`
	Approval      Approval      `toml:"approval"`
	Review        Review        `toml:"review"`
	Batch         Batch         `toml:"batch"`
	Executor      Executor      `toml:"executor"`
	Ingest        Ingest        `toml:"ingest"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/curator/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/curator/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("curator.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, c.Paths.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Ingest.Enabled && strings.TrimSpace(c.Paths.InboxDir) != "" {
		if err := os.MkdirAll(c.Paths.InboxDir, 0o755); err != nil {
			return fmt.Errorf("create inbox directory %q: %w", c.Paths.InboxDir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "curator.db")
}

// BackupRoot returns the directory that holds per-transaction backups.
func (c *Config) BackupRoot() string {
	return filepath.Join(c.Paths.StagingDir, "backups")
}

// RetainedBackupRoot returns the directory that holds delete backups kept for undo.
func (c *Config) RetainedBackupRoot() string {
	return filepath.Join(c.Paths.StagingDir, "retained")
}

// BatchInterval returns the approval batch timer period.
func (c *Config) BatchInterval() time.Duration {
	return time.Duration(c.Approval.BatchIntervalSeconds) * time.Second
}

// PollInterval returns the inbox scan period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Ingest.PollIntervalSeconds) * time.Second
}

// OperationTimeout returns the per-operation execution bound. Zero disables it.
func (c *Config) OperationTimeout() time.Duration {
	return time.Duration(c.Batch.OperationTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
