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

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shielded-notes-go/internal/common"
	"shielded-notes-go/internal/config"
	"shielded-notes-go/internal/models"
	"shielded-notes-go/internal/syncer"

	"go.uber.org/zap"
)

func main() {
	syncConfigFile := flag.String("sync-config", "", "Optional path to a YAML file with per-level sync overrides (takes precedence over SYNC_CONFIG_FILE)")
	runOnce := flag.Bool("once", false, "Run a single sync pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}
	if *syncConfigFile != "" {
		cfg.Sync.ConfigFile = *syncConfigFile
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting shielded note sync daemon")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if err := restoreState(ctx, services); err != nil {
		zap.L().Fatal("Failed to restore persisted state", zap.Error(err))
	}

	if *runOnce {
		runPass(ctx, services)
		persistState(context.Background(), services)
		return
	}

	interval := services.Sync.NextSyncTime()
	if interval <= 0 {
		interval = time.Minute
	}
	zap.L().Info("Sync loop configured",
		zap.Duration("interval", interval),
		zap.Duration("checkpoint_interval", cfg.Sync.CheckpointInterval))

	syncTicker := time.NewTicker(interval)
	defer syncTicker.Stop()
	checkpointTicker := time.NewTicker(cfg.Sync.CheckpointInterval)
	defer checkpointTicker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-syncTicker.C:
			runPass(ctx, services)
		case <-checkpointTicker.C:
			persistState(ctx, services)
		case <-sigChan:
			zap.L().Info("Shutdown signal received, stopping sync daemon...")
			services.Sync.CancelSync()
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			persistState(shutdownCtx, services)
			shutdownCancel()

			zap.L().Info("Sync daemon stopped")
			return
		}
	}
}

func runPass(ctx context.Context, services *common.Services) {
	pending := services.Notes.ByStatus(models.SyncPending)
	result, err := services.Sync.StartSync(ctx)
	if err != nil {
		if errors.Is(err, syncer.ErrSyncInProgress) {
			zap.L().Warn("Previous sync pass still running, skipping")
			return
		}
		zap.L().Error("Sync pass failed", zap.Error(err))
		return
	}

	now := time.Now()
	for _, meta := range pending {
		if err := services.Notes.UpdateStatus(meta.Id, models.SyncSynced, &now, ""); err != nil {
			zap.L().Warn("Failed to mark note synced", zap.String("id", meta.Id), zap.Error(err))
		}
	}
	services.Notes.SetLastSyncTime(now)

	zap.L().Info("Sync pass completed",
		zap.Int("synced", result.Synced),
		zap.Int("failed", result.Failed),
		zap.Int("notes_marked", len(pending)),
		zap.Duration("duration", result.Duration))
}

func restoreState(ctx context.Context, services *common.Services) error {
	noteSnapshot, err := services.DbService.LoadNoteSnapshot(ctx)
	if err != nil {
		return err
	}
	if len(noteSnapshot.Metadata) > 0 {
		if err := services.Notes.Import(noteSnapshot); err != nil {
			return err
		}
	}

	metricsSnapshot, err := services.DbService.LoadMetricsSnapshot(ctx)
	if err != nil {
		return err
	}
	if len(metricsSnapshot.Metrics) > 0 {
		services.Analytics.Import(metricsSnapshot)
	}

	history, err := services.DbService.LoadPrivacyHistory(ctx)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		services.Privacy.ImportSettings(models.PrivacySettingsSnapshot{
			Version:     "1.0",
			ExportedAt:  time.Now(),
			Preferences: services.Privacy.Preferences(),
			History:     history,
		})
	}

	zap.L().Info("Persisted state restored",
		zap.Int("notes", len(noteSnapshot.Metadata)),
		zap.Int("metrics", len(metricsSnapshot.Metrics)),
		zap.Int("history_entries", len(history)))
	return nil
}

func persistState(ctx context.Context, services *common.Services) {
	if err := services.DbService.SaveNoteSnapshot(ctx, services.Notes.Export()); err != nil {
		zap.L().Error("Failed to persist note snapshot", zap.Error(err))
	}
	if err := services.DbService.SaveMetricsSnapshot(ctx, services.Analytics.Export()); err != nil {
		zap.L().Error("Failed to persist metrics snapshot", zap.Error(err))
	}
	if err := services.DbService.SavePrivacyHistory(ctx, services.Privacy.ExportSettings().History); err != nil {
		zap.L().Error("Failed to persist privacy history", zap.Error(err))
	}
}
