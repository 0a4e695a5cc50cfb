package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScoring()
	c.normalizePolicy()
	c.normalizeApproval()
	c.normalizeBatch()
	c.normalizeIngest()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InboxDir) == "" {
		c.Paths.InboxDir = defaultInboxDir
	}
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScoring() {
	if c.Scoring.MaxPerFile <= 0 {
		c.Scoring.MaxPerFile = defaultMaxPerFile
	}
}

func (c *Config) normalizePolicy() {
	c.Policy.Profile = strings.ToLower(strings.TrimSpace(c.Policy.Profile))
	if c.Policy.Profile == "" {
		c.Policy.Profile = defaultPolicyProfile
	}
	if c.Policy.MaxAutoApprove < 0 {
		c.Policy.MaxAutoApprove = 0
	}
}

func (c *Config) normalizeApproval() {
	if c.Approval.MaxQueueSize <= 0 {
		c.Approval.MaxQueueSize = defaultApprovalQueueSize
	}
	if c.Approval.MaxPerBatch <= 0 {
		c.Approval.MaxPerBatch = defaultApprovalPerBatch
	}
	if c.Approval.BatchIntervalSeconds <= 0 {
		c.Approval.BatchIntervalSeconds = defaultBatchIntervalSeconds
	}
	globs := make([]string, 0, len(c.Approval.DangerousPathGlobs))
	for _, glob := range c.Approval.DangerousPathGlobs {
		if trimmed := strings.TrimSpace(glob); trimmed != "" {
			globs = append(globs, trimmed)
		}
	}
	c.Approval.DangerousPathGlobs = globs
}

func (c *Config) normalizeBatch() {
	if c.Batch.MaxBatchSize <= 0 {
		c.Batch.MaxBatchSize = defaultMaxBatchSize
	}
	if c.Batch.MaxConcurrentOperations <= 0 {
		c.Batch.MaxConcurrentOperations = defaultMaxConcurrentOps
	}
	if c.Batch.InteractiveWeight <= 0 {
		c.Batch.InteractiveWeight = defaultInteractiveWeight
	}
	if c.Batch.BackgroundWeight <= 0 {
		c.Batch.BackgroundWeight = defaultBackgroundWeight
	}
	if c.Batch.OperationTimeoutSeconds < 0 {
		c.Batch.OperationTimeoutSeconds = 0
	}
}

func (c *Config) normalizeIngest() {
	if c.Ingest.PollIntervalSeconds <= 0 {
		c.Ingest.PollIntervalSeconds = defaultPollIntervalSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CURATOR_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
