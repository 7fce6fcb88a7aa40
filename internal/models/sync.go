package models

import "time"

// SyncStrategy is the cadence policy for pushing notes toward the chain.
type SyncStrategy string

const (
	StrategyImmediate SyncStrategy = "immediate"
	StrategyBatched   SyncStrategy = "batched"
	StrategyLazy      SyncStrategy = "lazy"
)

// SyncConfig is the per-privacy-level synchronization policy.
type SyncConfig struct {
	Strategy   SyncStrategy  `json:"strategy" yaml:"strategy"`
	BatchSize  int           `json:"batch_size" yaml:"batch_size"`
	Interval   time.Duration `json:"interval" yaml:"interval"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`
}

// DefaultSyncConfigs returns the fixed per-level defaults: the more private
// the level, the more eagerly its notes are pushed.
func DefaultSyncConfigs() map[PrivacyLevel]SyncConfig {
	return map[PrivacyLevel]SyncConfig{
		PrivacyPublic: {
			Strategy:   StrategyLazy,
			BatchSize:  50,
			Interval:   5 * time.Minute,
			MaxRetries: 3,
			RetryDelay: 5 * time.Second,
		},
		PrivacySemiPrivate: {
			Strategy:   StrategyBatched,
			BatchSize:  20,
			Interval:   time.Minute,
			MaxRetries: 5,
			RetryDelay: 3 * time.Second,
		},
		PrivacyFullPrivate: {
			Strategy:   StrategyImmediate,
			BatchSize:  1,
			Interval:   0, // real-time
			MaxRetries: 10,
			RetryDelay: time.Second,
		},
	}
}

// SyncResult is the immutable outcome of one orchestration pass.
type SyncResult struct {
	Success   bool          `json:"success"`
	Synced    int           `json:"synced"`
	Failed    int           `json:"failed"`
	Errors    []string      `json:"errors"`
	Duration  time.Duration `json:"duration"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
}

// SyncStatistics accumulates across orchestration passes.
type SyncStatistics struct {
	TotalSyncs       int           `json:"total_syncs"`
	SuccessfulSyncs  int           `json:"successful_syncs"`
	FailedSyncs      int           `json:"failed_syncs"`
	TotalNotesSynced int           `json:"total_notes_synced"`
	TotalNotesFailed int           `json:"total_notes_failed"`
	AverageSyncTime  time.Duration `json:"average_sync_time"`
	Uptime           time.Duration `json:"uptime"`
	LastSyncResult   *SyncResult   `json:"last_sync_result,omitempty"`
}

// SyncSettingsSnapshot is the versioned export format for the sync
// configuration table and statistics.
type SyncSettingsSnapshot struct {
	Version    string                      `json:"version"`
	ExportedAt time.Time                   `json:"exported_at"`
	Configs    map[PrivacyLevel]SyncConfig `json:"configs"`
	Statistics SyncStatistics              `json:"statistics"`
}
