package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validatePolicy(); err != nil {
		return err
	}
	if err := c.validateApproval(); err != nil {
		return err
	}
	if err := c.validateReview(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateExecutor(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScoring() error {
	weights := map[string]float64{
		"scoring.structural_weight":  c.Scoring.StructuralWeight,
		"scoring.alignment_weight":   c.Scoring.AlignmentWeight,
		"scoring.consistency_weight": c.Scoring.ConsistencyWeight,
		"scoring.convention_weight":  c.Scoring.ConventionWeight,
	}
	sum := 0.0
	for key, weight := range weights {
		if weight < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
		sum += weight
	}
	if sum > 1.0 {
		return fmt.Errorf("scoring weights must sum to at most 1.0, got %.2f", sum)
	}
	return nil
}

func (c *Config) validatePolicy() error {
	switch c.Policy.Profile {
	case "conservative", "balanced", "aggressive":
	case "custom":
		if c.Policy.CustomThreshold < 0.10 || c.Policy.CustomThreshold > 1.00 {
			return errors.New("policy.custom_threshold must be between 0.10 and 1.00")
		}
	default:
		return fmt.Errorf("policy.profile: unsupported value %q", c.Policy.Profile)
	}
	return nil
}

func (c *Config) validateApproval() error {
	if c.Approval.RequireMinConfidence < 0 || c.Approval.RequireMinConfidence > 1 {
		return errors.New("approval.require_min_confidence must be between 0 and 1")
	}
	if err := ensurePositiveMap(map[string]int{
		"approval.max_queue_size":         c.Approval.MaxQueueSize,
		"approval.max_per_batch":          c.Approval.MaxPerBatch,
		"approval.batch_interval_seconds": c.Approval.BatchIntervalSeconds,
	}); err != nil {
		return err
	}
	for _, glob := range c.Approval.DangerousPathGlobs {
		if _, err := filepath.Match(glob, "probe"); err != nil {
			return fmt.Errorf("approval.dangerous_path_globs: bad pattern %q: %w", glob, err)
		}
	}
	return nil
}

func (c *Config) validateReview() error {
	if c.Review.MaxQueueSize <= 0 {
		return errors.New("review.max_queue_size must be positive")
	}
	if c.Review.BatchSize <= 0 {
		return errors.New("review.batch_size must be positive")
	}
	if c.Review.RetentionDays < 0 {
		return errors.New("review.retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validateBatch() error {
	return ensurePositiveMap(map[string]int{
		"batch.max_batch_size":            c.Batch.MaxBatchSize,
		"batch.max_concurrent_operations": c.Batch.MaxConcurrentOperations,
		"batch.interactive_weight":        c.Batch.InteractiveWeight,
		"batch.background_weight":         c.Batch.BackgroundWeight,
	})
}

func (c *Config) validateExecutor() error {
	if c.Executor.BackupRetentionDays < 0 {
		return errors.New("executor.backup_retention_days must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
