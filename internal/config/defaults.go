package config

const (
	defaultStagingDir       = "~/.local/share/curator/staging"
	defaultLogDir           = "~/.local/share/curator/logs"
	defaultDataDir          = "~/.local/share/curator/data"
	defaultInboxDir         = "~/.local/share/curator/inbox"
	defaultLogRetentionDays = 60
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"

	defaultStructuralWeight  = 0.30
	defaultAlignmentWeight   = 0.25
	defaultConsistencyWeight = 0.25
	defaultConventionWeight  = 0.20
	defaultMaxPerFile        = 5

	defaultPolicyProfile   = "balanced"
	defaultCustomThreshold = 0.80

	defaultRequireMinConfidence = 0.85
	defaultApprovalQueueSize    = 500
	defaultApprovalPerBatch     = 25
	defaultBatchIntervalSeconds = 2

	defaultReviewQueueSize      = 1000
	defaultReviewBatchSize      = 20
	defaultReviewRetentionDays  = 30
	defaultMaxBatchSize         = 50
	defaultMaxConcurrentOps     = 4
	defaultInteractiveWeight    = 100
	defaultBackgroundWeight     = 10
	defaultBackupRetentionDays  = 14
	defaultPollIntervalSeconds  = 5
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			DataDir:    defaultDataDir,
			InboxDir:   defaultInboxDir,
		},
		Scoring: Scoring{
			StructuralWeight:  defaultStructuralWeight,
			AlignmentWeight:   defaultAlignmentWeight,
			ConsistencyWeight: defaultConsistencyWeight,
			ConventionWeight:  defaultConventionWeight,
			MaxPerFile:        defaultMaxPerFile,
		},
		Policy: Policy{
			Profile:            defaultPolicyProfile,
			CustomThreshold:    defaultCustomThreshold,
			AutoApproveEnabled: true,
		},
		Approval: Approval{
			RequireMinConfidence: defaultRequireMinConfidence,
			MaxQueueSize:         defaultApprovalQueueSize,
			MaxPerBatch:          defaultApprovalPerBatch,
			BatchIntervalSeconds: defaultBatchIntervalSeconds,
		},
		Review: Review{
			MaxQueueSize:  defaultReviewQueueSize,
			BatchSize:     defaultReviewBatchSize,
			RetentionDays: defaultReviewRetentionDays,
		},
		Batch: Batch{
			MaxBatchSize:            defaultMaxBatchSize,
			MaxConcurrentOperations: defaultMaxConcurrentOps,
			InteractiveWeight:       defaultInteractiveWeight,
			BackgroundWeight:        defaultBackgroundWeight,
		},
		Executor: Executor{
			CreateBackups:       true,
			BackupRetentionDays: defaultBackupRetentionDays,
		},
		Ingest: Ingest{
			Enabled:             true,
			PollIntervalSeconds: defaultPollIntervalSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Batches:        true,
			Review:         true,
			Errors:         true,
		},
	}
}
