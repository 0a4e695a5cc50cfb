package testsupport

import (
	"path/filepath"
	"testing"

	"curator/internal/config"
)

// ConfigOption mutates the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig returns a config whose directories all live under one fresh
// per-test temp root, with notifications disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.InboxDir = filepath.Join(base, "inbox")
	cfg.Notifications.NtfyTopic = ""

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithProfile sets the threshold profile on the test config.
func WithProfile(profile string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Policy.Profile = profile
	}
}

// WithAutoApproveDisabled turns off auto-approval on the test config.
func WithAutoApproveDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Policy.AutoApproveEnabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
