/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shielded-notes-go/internal/models"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Sentinel errors raised by the sync orchestrator.
var (
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrSyncCancelled  = errors.New("sync cancelled")
	ErrUnknownLevel   = errors.New("unknown privacy level")
)

const settingsVersion = "1.0"

// Manager orchestrates synchronization passes across privacy levels. At most
// one pass runs at a time; a concurrent StartSync observes ErrSyncInProgress.
type Manager struct {
	mu         sync.Mutex
	configs    map[models.PrivacyLevel]models.SyncConfig
	status     models.SyncStatus
	progress   float64
	running    bool
	stats      models.SyncStatistics
	lastResult *models.SyncResult
	startedAt  time.Time
	submitter  Submitter
	cancelCh   chan struct{}
}

// NewManager builds a Manager with the default per-level configs. A nil
// submitter falls back to the simulated one.
func NewManager(submitter Submitter) *Manager {
	if submitter == nil {
		submitter = SimulatedSubmitter{}
	}
	return &Manager{
		configs:   models.DefaultSyncConfigs(),
		status:    models.SyncPending,
		startedAt: time.Now(),
		submitter: submitter,
	}
}

// StartSync executes one synchronization pass over every privacy level in
// ascending privacy order. The second concurrent call fails with
// ErrSyncInProgress; the running flag is always released on exit.
func (m *Manager) StartSync(ctx context.Context) (models.SyncResult, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return models.SyncResult{}, ErrSyncInProgress
	}
	m.running = true
	m.status = models.SyncSyncing
	m.progress = 0
	m.cancelCh = make(chan struct{})
	cancelCh := m.cancelCh
	configs := make(map[models.PrivacyLevel]models.SyncConfig, len(m.configs))
	for level, cfg := range m.configs {
		configs[level] = cfg
	}
	m.mu.Unlock()

	zap.L().Info("Starting sync pass", zap.Int("levels", len(configs)))

	startTime := time.Now()
	synced := 0
	failed := 0
	var levelErrs *multierror.Error

	for _, level := range models.AllPrivacyLevels {
		cfg, ok := configs[level]
		if !ok {
			continue
		}

		count, err := m.executeLevel(ctx, level, cfg, cancelCh)
		if err != nil {
			if errors.Is(err, ErrSyncCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return m.abortPass(startTime, synced, failed, err)
			}
			failed++
			levelErrs = multierror.Append(levelErrs, fmt.Errorf("level %s: %w", level, err))
			zap.L().Warn("Level sync failed", zap.String("privacy_level", string(level)), zap.Error(err))
		} else {
			synced += count
		}

		m.mu.Lock()
		m.progress += 100 / float64(len(configs))
		m.mu.Unlock()
	}

	endTime := time.Now()
	result := models.SyncResult{
		Success:   failed == 0,
		Synced:    synced,
		Failed:    failed,
		Errors:    flattenErrors(levelErrs),
		Duration:  endTime.Sub(startTime),
		StartTime: startTime,
		EndTime:   endTime,
	}

	m.mu.Lock()
	m.status = models.SyncSynced
	m.progress = 100
	m.running = false
	m.cancelCh = nil
	m.updateStatisticsLocked(result)
	m.lastResult = &result
	m.mu.Unlock()

	zap.L().Info("Sync pass complete",
		zap.Bool("success", result.Success),
		zap.Int("synced", result.Synced),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// abortPass records a failed pass after cancellation or context expiry. The
// running flag is released so a later pass can start; a cancel-initiated
// abort keeps the status Pause/Cancel already set.
func (m *Manager) abortPass(startTime time.Time, synced, failed int, cause error) (models.SyncResult, error) {
	endTime := time.Now()
	result := models.SyncResult{
		Success:   false,
		Synced:    synced,
		Failed:    failed,
		Errors:    []string{cause.Error()},
		Duration:  endTime.Sub(startTime),
		StartTime: startTime,
		EndTime:   endTime,
	}

	m.mu.Lock()
	m.running = false
	m.cancelCh = nil
	if !errors.Is(cause, ErrSyncCancelled) {
		m.status = models.SyncFailed
	}
	m.stats.FailedSyncs++
	m.lastResult = &result
	m.mu.Unlock()

	zap.L().Warn("Sync pass aborted", zap.Error(cause))
	return result, cause
}

// executeLevel runs one level's strategy. Immediate processes a single unit,
// batched a full batch, and lazy waits out the configured delay first.
func (m *Manager) executeLevel(ctx context.Context, level models.PrivacyLevel, cfg models.SyncConfig, cancelCh chan struct{}) (int, error) {
	switch cfg.Strategy {
	case models.StrategyImmediate:
		return m.submitter.SubmitBatch(ctx, level, 1)
	case models.StrategyBatched:
		return m.submitter.SubmitBatch(ctx, level, cfg.BatchSize)
	case models.StrategyLazy:
		if err := waitDelay(ctx, cfg.RetryDelay, cancelCh); err != nil {
			return 0, err
		}
		return m.submitter.SubmitBatch(ctx, level, cfg.BatchSize)
	default:
		return 0, fmt.Errorf("unknown sync strategy %q", cfg.Strategy)
	}
}

// waitDelay sleeps for d but wakes early on cancellation, so a cancelled run
// releases its running flag within bounded time.
func waitDelay(ctx context.Context, d time.Duration, cancelCh chan struct{}) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-cancelCh:
		return ErrSyncCancelled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PauseSync stops further scheduling and returns the status to PENDING. An
// in-flight strategy step is not interrupted beyond waking its delay.
func (m *Manager) PauseSync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = models.SyncPending
	m.signalCancelLocked()
}

// CancelSync stops further scheduling, returns the status to PENDING and
// zeroes the progress.
func (m *Manager) CancelSync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = models.SyncPending
	m.progress = 0
	m.signalCancelLocked()
}

func (m *Manager) signalCancelLocked() {
	if m.cancelCh != nil {
		close(m.cancelCh)
		m.cancelCh = nil
	}
}

// ResumeSync starts a pass if none is running.
func (m *Manager) ResumeSync(ctx context.Context) error {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if running {
		return nil
	}
	_, err := m.StartSync(ctx)
	return err
}

// RetryFailed re-runs a pass under RETRYING status. A failed retry leaves the
// status FAILED and propagates the error.
func (m *Manager) RetryFailed(ctx context.Context) (models.SyncResult, error) {
	m.mu.Lock()
	m.status = models.SyncRetrying
	m.mu.Unlock()

	result, err := m.StartSync(ctx)
	if err != nil {
		m.mu.Lock()
		m.status = models.SyncFailed
		m.mu.Unlock()
		return result, err
	}
	return result, nil
}

// Status returns the shared run status.
func (m *Manager) Status() models.SyncStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Progress returns the pass progress as a rounded percentage, capped at 100.
func (m *Manager) Progress() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := int(m.progress + 0.5)
	if p > 100 {
		return 100
	}
	return p
}

// InProgress reports whether a pass is running.
func (m *Manager) InProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Strategy returns the configured strategy for a level, defaulting to lazy.
func (m *Manager) Strategy(level models.PrivacyLevel) models.SyncStrategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.configs[level]; ok {
		return cfg.Strategy
	}
	return models.StrategyLazy
}

// Config returns the sync configuration for a level.
func (m *Manager) Config(level models.PrivacyLevel) (models.SyncConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[level]
	return cfg, ok
}

// UpdateConfig replaces the configuration for a level.
func (m *Manager) UpdateConfig(level models.PrivacyLevel, cfg models.SyncConfig) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownLevel, level)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[level] = cfg
	zap.L().Info("Sync config updated",
		zap.String("privacy_level", string(level)),
		zap.String("strategy", string(cfg.Strategy)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("interval", cfg.Interval))
	return nil
}

// AllConfigs returns a copy of the per-level configuration table.
func (m *Manager) AllConfigs() map[models.PrivacyLevel]models.SyncConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[models.PrivacyLevel]models.SyncConfig, len(m.configs))
	for level, cfg := range m.configs {
		out[level] = cfg
	}
	return out
}

// NextSyncTime returns the smallest strictly positive configured interval, or
// zero when every level is real-time.
func (m *Manager) NextSyncTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var minInterval time.Duration
	for _, cfg := range m.configs {
		if cfg.Interval > 0 && (minInterval == 0 || cfg.Interval < minInterval) {
			minInterval = cfg.Interval
		}
	}
	return minInterval
}

// Statistics returns the accumulated statistics with live uptime.
func (m *Manager) Statistics() models.SyncStatistics {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	stats.Uptime = time.Since(m.startedAt)
	stats.LastSyncResult = m.lastResult
	return stats
}

// ResetStatistics zeroes the accumulated statistics and restarts uptime.
func (m *Manager) ResetStatistics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = models.SyncStatistics{}
	m.lastResult = nil
	m.startedAt = time.Now()
}

func (m *Manager) updateStatisticsLocked(result models.SyncResult) {
	m.stats.TotalSyncs++
	if result.Success {
		m.stats.SuccessfulSyncs++
	} else {
		m.stats.FailedSyncs++
	}
	m.stats.TotalNotesSynced += result.Synced
	m.stats.TotalNotesFailed += result.Failed

	n := time.Duration(m.stats.TotalSyncs)
	m.stats.AverageSyncTime = (m.stats.AverageSyncTime*(n-1) + result.Duration) / n
}

// ExportSettings snapshots the config table and statistics.
func (m *Manager) ExportSettings() models.SyncSettingsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	configs := make(map[models.PrivacyLevel]models.SyncConfig, len(m.configs))
	for level, cfg := range m.configs {
		configs[level] = cfg
	}
	stats := m.stats
	stats.Uptime = time.Since(m.startedAt)
	return models.SyncSettingsSnapshot{
		Version:    settingsVersion,
		ExportedAt: time.Now(),
		Configs:    configs,
		Statistics: stats,
	}
}

// ImportSettings replaces the config table and statistics from a snapshot.
func (m *Manager) ImportSettings(snapshot models.SyncSettingsSnapshot) {
	if snapshot.Configs == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = make(map[models.PrivacyLevel]models.SyncConfig, len(snapshot.Configs))
	for level, cfg := range snapshot.Configs {
		m.configs[level] = cfg
	}
	m.stats = snapshot.Statistics
	zap.L().Info("Sync settings imported", zap.Int("configs", len(m.configs)))
}

func flattenErrors(errs *multierror.Error) []string {
	if errs == nil {
		return []string{}
	}
	out := make([]string, 0, len(errs.Errors))
	for _, err := range errs.Errors {
		out = append(out, err.Error())
	}
	return out
}
