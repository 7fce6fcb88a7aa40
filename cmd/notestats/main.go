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
	"flag"
	"fmt"

	"shielded-notes-go/internal/analytics"
	"shielded-notes-go/internal/common"
	"shielded-notes-go/internal/config"
	"shielded-notes-go/internal/models"
	"shielded-notes-go/internal/notes"

	"go.uber.org/zap"
)

func main() {
	topAddresses := flag.Int("top", 5, "Number of most active addresses to show")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	noteSnapshot, err := dbService.LoadNoteSnapshot(ctx)
	if err != nil {
		zap.L().Fatal("Failed to load note snapshot", zap.Error(err))
	}

	metricsSnapshot, err := dbService.LoadMetricsSnapshot(ctx)
	if err != nil {
		zap.L().Fatal("Failed to load metrics snapshot", zap.Error(err))
	}

	store := notes.NewStore(cfg.Notes)
	if len(noteSnapshot.Metadata) > 0 {
		if err := store.Import(noteSnapshot); err != nil {
			zap.L().Fatal("Failed to import note snapshot", zap.Error(err))
		}
	}

	analyticsManager := analytics.NewManager(cfg.Analytics)
	analyticsManager.Import(metricsSnapshot)

	printNoteStats(store.Statistics())
	printAnalytics(analyticsManager, *topAddresses)

	common.PrintFooter("Done", common.DefaultWidth)
}

func printNoteStats(stats models.NoteStatistics) {
	common.PrintHeader("NOTE STORE", common.DefaultWidth)
	fmt.Printf("Total notes:      %d\n", stats.TotalNotes)
	fmt.Printf("Encrypted notes:  %d\n", stats.EncryptedNotes)
	fmt.Printf("Synced notes:     %d\n", stats.SyncedNotes)
	fmt.Printf("Pending notes:    %d\n", stats.PendingNotes)
	fmt.Printf("Failed notes:     %d\n", stats.FailedNotes)
	fmt.Printf("Total size:       %d bytes\n", stats.TotalSize)
	fmt.Printf("Avg sync time:    %.2fs\n", stats.AverageSyncSeconds)

	fmt.Println("\nNotes by privacy level:")
	for _, level := range models.AllPrivacyLevels {
		fmt.Printf("  %-14s %d\n", level.DisplayName(), stats.NotesByPrivacyLevel[level])
	}
}

func printAnalytics(manager *analytics.Manager, top int) {
	common.PrintHeader("TRANSACTION ANALYTICS", common.DefaultWidth)

	stats := manager.Stats(analytics.StatsFilter{})
	fmt.Printf("Total transactions:  %d\n", stats.TotalTransactions)
	fmt.Printf("Success rate:        %.2f%%\n", stats.SuccessRate)
	fmt.Printf("Average duration:    %v\n", stats.AvgDuration)
	fmt.Printf("Total volume:        %s\n", stats.TotalVolume)

	addresses := manager.TopAddresses(top)
	if len(addresses) > 0 {
		fmt.Println("\nMost active addresses:")
		for i, addr := range addresses {
			prefix := common.BoxPrefix(i == len(addresses)-1)
			fmt.Printf("%s%s  %d transactions, %.2f%% success\n",
				prefix, addr.Address, addr.TransactionCount, addr.SuccessRate)
		}
	}

	anomalies := manager.CalculateAnomalies()
	if len(anomalies) > 0 {
		fmt.Println("\nAnomalies detected:")
		for _, alert := range anomalies {
			fmt.Printf("  [%s] %s\n", alert.Severity, alert.Message)
		}
	}
}
