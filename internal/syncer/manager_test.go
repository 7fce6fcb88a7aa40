package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"shielded-notes-go/internal/models"
)

// blockingSubmitter holds every submission until release is closed.
type blockingSubmitter struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingSubmitter() *blockingSubmitter {
	return &blockingSubmitter{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingSubmitter) SubmitBatch(ctx context.Context, _ models.PrivacyLevel, count int) (int, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return count, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// failingSubmitter fails one level and accepts the rest.
type failingSubmitter struct {
	failLevel models.PrivacyLevel
}

func (f failingSubmitter) SubmitBatch(_ context.Context, level models.PrivacyLevel, count int) (int, error) {
	if level == f.failLevel {
		return 0, errors.New("submission rejected")
	}
	return count, nil
}

// fastManager returns a Manager whose lazy level has no delay, so passes
// finish promptly in tests.
func fastManager(t *testing.T, submitter Submitter) *Manager {
	t.Helper()
	manager := NewManager(submitter)
	cfg, ok := manager.Config(models.PrivacyPublic)
	if !ok {
		t.Fatal("Expected public config")
	}
	cfg.RetryDelay = 0
	if err := manager.UpdateConfig(models.PrivacyPublic, cfg); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	return manager
}

func TestDefaultConfigs(t *testing.T) {
	manager := NewManager(nil)

	cases := []struct {
		level    models.PrivacyLevel
		strategy models.SyncStrategy
		batch    int
	}{
		{models.PrivacyPublic, models.StrategyLazy, 50},
		{models.PrivacySemiPrivate, models.StrategyBatched, 20},
		{models.PrivacyFullPrivate, models.StrategyImmediate, 1},
	}

	for _, tc := range cases {
		cfg, ok := manager.Config(tc.level)
		if !ok {
			t.Fatalf("Missing config for %s", tc.level)
		}
		if cfg.Strategy != tc.strategy {
			t.Errorf("Expected %s strategy for %s, got %s", tc.strategy, tc.level, cfg.Strategy)
		}
		if cfg.BatchSize != tc.batch {
			t.Errorf("Expected batch size %d for %s, got %d", tc.batch, tc.level, cfg.BatchSize)
		}
	}

	if manager.Status() != models.SyncPending {
		t.Errorf("Expected initial PENDING status, got %s", manager.Status())
	}
	if manager.NextSyncTime() != time.Minute {
		t.Errorf("Expected next sync in 1m, got %v", manager.NextSyncTime())
	}
}

func TestStartSync_Success(t *testing.T) {
	manager := fastManager(t, nil)

	result, err := manager.StartSync(context.Background())
	if err != nil {
		t.Fatalf("StartSync failed: %v", err)
	}

	if !result.Success {
		t.Errorf("Expected success, errors %v", result.Errors)
	}
	// immediate 1 + batched 20 + lazy 50
	if result.Synced != 71 {
		t.Errorf("Expected 71 synced, got %d", result.Synced)
	}
	if manager.Status() != models.SyncSynced {
		t.Errorf("Expected SYNCED status, got %s", manager.Status())
	}
	if manager.Progress() != 100 {
		t.Errorf("Expected 100%% progress, got %d", manager.Progress())
	}
	if manager.InProgress() {
		t.Error("Expected pass to be finished")
	}
}

func TestStartSync_SingleFlight(t *testing.T) {
	submitter := newBlockingSubmitter()
	manager := fastManager(t, submitter)

	type outcome struct {
		result models.SyncResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := manager.StartSync(context.Background())
		done <- outcome{result, err}
	}()

	// Wait until the pass is inside the submitter.
	select {
	case <-submitter.started:
	case <-time.After(5 * time.Second):
		t.Fatal("First pass never started")
	}

	if _, err := manager.StartSync(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("Expected ErrSyncInProgress, got %v", err)
	}

	close(submitter.release)
	select {
	case out := <-done:
		if out.err != nil {
			t.Fatalf("First pass failed: %v", out.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("First pass never finished")
	}

	// A subsequent pass may start once the flag is released.
	if _, err := manager.StartSync(context.Background()); err != nil {
		t.Errorf("Expected follow-up pass to start, got %v", err)
	}
}

func TestStartSync_LevelFailure(t *testing.T) {
	manager := fastManager(t, failingSubmitter{failLevel: models.PrivacySemiPrivate})

	result, err := manager.StartSync(context.Background())
	if err != nil {
		t.Fatalf("StartSync failed: %v", err)
	}

	if result.Success {
		t.Error("Expected failed pass")
	}
	if result.Failed != 1 {
		t.Errorf("Expected 1 failed level, got %d", result.Failed)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Expected 1 error message, got %v", result.Errors)
	}
	// public lazy 50 + full immediate 1
	if result.Synced != 51 {
		t.Errorf("Expected 51 synced, got %d", result.Synced)
	}

	stats := manager.Statistics()
	if stats.FailedSyncs != 1 || stats.TotalSyncs != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestCancelSync_ReleasesRunningPass(t *testing.T) {
	// Public stays lazy with its long default delay; cancel must wake it.
	manager := NewManager(nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := manager.StartSync(context.Background())
		errCh <- err
	}()

	deadline := time.After(5 * time.Second)
	for !manager.InProgress() {
		select {
		case <-deadline:
			t.Fatal("Pass never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	manager.CancelSync()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrSyncCancelled) {
			t.Errorf("Expected ErrSyncCancelled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Cancelled pass did not return")
	}

	if manager.Status() != models.SyncPending {
		t.Errorf("Expected PENDING after cancel, got %s", manager.Status())
	}
	if manager.Progress() != 0 {
		t.Errorf("Expected progress reset, got %d", manager.Progress())
	}
	if manager.InProgress() {
		t.Error("Expected running flag released after cancel")
	}

	// The manager accepts a fresh pass after cancellation.
	fast := manager
	cfg, _ := fast.Config(models.PrivacyPublic)
	cfg.RetryDelay = 0
	if err := fast.UpdateConfig(models.PrivacyPublic, cfg); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if _, err := fast.StartSync(context.Background()); err != nil {
		t.Errorf("Expected pass after cancel to start, got %v", err)
	}
}

func TestStartSync_ContextCancelled(t *testing.T) {
	manager := NewManager(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := manager.StartSync(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if manager.Status() != models.SyncFailed {
		t.Errorf("Expected FAILED status, got %s", manager.Status())
	}
	if manager.InProgress() {
		t.Error("Expected running flag released")
	}
}

func TestRetryFailed(t *testing.T) {
	manager := fastManager(t, nil)

	result, err := manager.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if !result.Success {
		t.Error("Expected retry pass to succeed")
	}
	if manager.Status() != models.SyncSynced {
		t.Errorf("Expected SYNCED after retry, got %s", manager.Status())
	}
}

func TestUpdateConfig_UnknownLevel(t *testing.T) {
	manager := NewManager(nil)

	err := manager.UpdateConfig(models.PrivacyLevel("bogus"), models.SyncConfig{})
	if !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("Expected ErrUnknownLevel, got %v", err)
	}
}

func TestStrategyDefault(t *testing.T) {
	manager := NewManager(nil)

	if got := manager.Strategy(models.PrivacyFullPrivate); got != models.StrategyImmediate {
		t.Errorf("Expected immediate, got %s", got)
	}
	if got := manager.Strategy(models.PrivacyLevel("bogus")); got != models.StrategyLazy {
		t.Errorf("Expected lazy fallback, got %s", got)
	}
}

func TestStatisticsAccumulation(t *testing.T) {
	manager := fastManager(t, nil)

	for i := 0; i < 2; i++ {
		if _, err := manager.StartSync(context.Background()); err != nil {
			t.Fatalf("StartSync %d failed: %v", i, err)
		}
	}

	stats := manager.Statistics()
	if stats.TotalSyncs != 2 || stats.SuccessfulSyncs != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.TotalNotesSynced != 142 {
		t.Errorf("Expected 142 notes synced, got %d", stats.TotalNotesSynced)
	}
	if stats.LastSyncResult == nil {
		t.Error("Expected last result recorded")
	}
	if stats.Uptime <= 0 {
		t.Error("Expected positive uptime")
	}

	manager.ResetStatistics()
	if manager.Statistics().TotalSyncs != 0 {
		t.Error("Expected statistics reset")
	}
}

func TestExportImportSettings(t *testing.T) {
	source := fastManager(t, nil)
	if _, err := source.StartSync(context.Background()); err != nil {
		t.Fatalf("StartSync failed: %v", err)
	}

	snapshot := source.ExportSettings()
	if snapshot.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", snapshot.Version)
	}

	target := NewManager(nil)
	target.ImportSettings(snapshot)

	cfg, ok := target.Config(models.PrivacyPublic)
	if !ok {
		t.Fatal("Expected public config after import")
	}
	if cfg.RetryDelay != 0 {
		t.Errorf("Expected imported retry delay 0, got %v", cfg.RetryDelay)
	}
	if target.Statistics().TotalSyncs != 1 {
		t.Errorf("Expected imported stats, got %+v", target.Statistics())
	}

	// A snapshot without configs is ignored.
	target.ImportSettings(models.SyncSettingsSnapshot{})
	if _, ok := target.Config(models.PrivacyPublic); !ok {
		t.Error("Expected configs preserved on empty import")
	}
}
