package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"shielded-notes-go/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	service, err := NewServiceWithDB(db)
	if err != nil {
		t.Fatalf("Failed to initialize schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func TestLoadNoteSnapshot_EmptyDatabase(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	snapshot, err := service.LoadNoteSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadNoteSnapshot failed: %v", err)
	}

	if snapshot.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", snapshot.Version)
	}
	if snapshot.Notes == nil || snapshot.Metadata == nil {
		t.Error("Expected initialized maps on empty database")
	}
	if len(snapshot.Metadata) != 0 {
		t.Errorf("Expected empty snapshot, got %d entries", len(snapshot.Metadata))
	}
}

func TestNoteSnapshotRoundTrip(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	syncedAt := createdAt.Add(5 * time.Second)

	snapshot := models.NoteSnapshot{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Notes: map[string]models.NoteData{
			"n1": {
				CommitmentHash: "0xcommit1",
				EncryptedData:  "FULL:abcd",
				PrivacyLevel:   models.PrivacyFullPrivate,
				Timestamp:      createdAt,
				Salt:           "salt1",
				IV:             "iv1",
			},
			"n2": {
				CommitmentHash: "0xcommit2",
				EncryptedData:  "plain",
				PrivacyLevel:   models.PrivacyPublic,
				Timestamp:      createdAt,
			},
		},
		Metadata: map[string]models.NoteMetadata{
			"n1": {
				Id:            "n1",
				TxHash:        "0xtx1",
				FromAddress:   "0xfrom",
				ToAddress:     "0xto",
				Amount:        "1000000000000000000",
				PrivacyLevel:  models.PrivacyFullPrivate,
				EncryptedFlag: true,
				SyncStatus:    models.SyncSynced,
				CreatedAt:     createdAt,
				SyncedAt:      &syncedAt,
			},
			"n2": {
				Id:           "n2",
				TxHash:       "0xtx2",
				FromAddress:  "0xfrom",
				ToAddress:    "0xto",
				Amount:       "500",
				PrivacyLevel: models.PrivacyPublic,
				SyncStatus:   models.SyncFailed,
				CreatedAt:    createdAt,
				Error:        "submission rejected",
			},
		},
	}

	if err := service.SaveNoteSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("SaveNoteSnapshot failed: %v", err)
	}

	loaded, err := service.LoadNoteSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadNoteSnapshot failed: %v", err)
	}

	if len(loaded.Metadata) != 2 {
		t.Fatalf("Expected 2 notes, got %d", len(loaded.Metadata))
	}

	n1 := loaded.Metadata["n1"]
	if n1.SyncStatus != models.SyncSynced {
		t.Errorf("Expected SYNCED, got %s", n1.SyncStatus)
	}
	if n1.SyncedAt == nil || !n1.SyncedAt.Equal(syncedAt) {
		t.Error("Expected synced timestamp preserved")
	}
	if loaded.Notes["n1"].Salt != "salt1" || loaded.Notes["n1"].IV != "iv1" {
		t.Errorf("Expected salt/iv preserved, got %+v", loaded.Notes["n1"])
	}

	n2 := loaded.Metadata["n2"]
	if n2.SyncedAt != nil {
		t.Error("Expected nil synced timestamp")
	}
	if n2.Error != "submission rejected" {
		t.Errorf("Expected error message preserved, got %q", n2.Error)
	}
}

func TestSaveNoteSnapshot_Replaces(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	first := models.NoteSnapshot{
		Version: "1.0",
		Notes: map[string]models.NoteData{
			"n1": {CommitmentHash: "0x1", EncryptedData: "a", PrivacyLevel: models.PrivacyPublic, Timestamp: time.Now()},
		},
		Metadata: map[string]models.NoteMetadata{
			"n1": {Id: "n1", TxHash: "0x1", FromAddress: "f", ToAddress: "t", Amount: "1",
				PrivacyLevel: models.PrivacyPublic, SyncStatus: models.SyncPending, CreatedAt: time.Now()},
		},
	}
	if err := service.SaveNoteSnapshot(ctx, first); err != nil {
		t.Fatalf("SaveNoteSnapshot failed: %v", err)
	}

	second := models.NoteSnapshot{
		Version: "1.0",
		Notes: map[string]models.NoteData{
			"n2": {CommitmentHash: "0x2", EncryptedData: "b", PrivacyLevel: models.PrivacyPublic, Timestamp: time.Now()},
		},
		Metadata: map[string]models.NoteMetadata{
			"n2": {Id: "n2", TxHash: "0x2", FromAddress: "f", ToAddress: "t", Amount: "2",
				PrivacyLevel: models.PrivacyPublic, SyncStatus: models.SyncPending, CreatedAt: time.Now()},
		},
	}
	if err := service.SaveNoteSnapshot(ctx, second); err != nil {
		t.Fatalf("SaveNoteSnapshot failed: %v", err)
	}

	loaded, err := service.LoadNoteSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadNoteSnapshot failed: %v", err)
	}
	if len(loaded.Metadata) != 1 {
		t.Fatalf("Expected 1 note after replace, got %d", len(loaded.Metadata))
	}
	if _, ok := loaded.Metadata["n2"]; !ok {
		t.Error("Expected n2 to survive")
	}
}

func TestSaveNoteSnapshot_RejectsInvalidAmount(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	snapshot := models.NoteSnapshot{
		Version: "1.0",
		Notes: map[string]models.NoteData{
			"n1": {CommitmentHash: "0x1", EncryptedData: "a", PrivacyLevel: models.PrivacyPublic, Timestamp: time.Now()},
		},
		Metadata: map[string]models.NoteMetadata{
			"n1": {Id: "n1", TxHash: "0x1", FromAddress: "f", ToAddress: "t", Amount: "not-a-number",
				PrivacyLevel: models.PrivacyPublic, SyncStatus: models.SyncPending, CreatedAt: time.Now()},
		},
	}

	if err := service.SaveNoteSnapshot(context.Background(), snapshot); err == nil {
		t.Error("Expected invalid amount to be rejected")
	}

	loaded, err := service.LoadNoteSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadNoteSnapshot failed: %v", err)
	}
	if len(loaded.Metadata) != 0 {
		t.Error("Expected rolled-back transaction to leave the table empty")
	}
}

func TestMetricsSnapshotRoundTrip(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	snapshot := models.MetricsSnapshot{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Metrics: []models.TransactionMetric{
			{
				Id:           "m1",
				Timestamp:    ts,
				TxHash:       "0xtx",
				PrivacyLevel: models.PrivacySemiPrivate,
				Amount:       "12345",
				GasUsed:      "21000",
				Status:       models.TxSuccess,
				Duration:     1500 * time.Millisecond,
				FromAddress:  "0xfrom",
				ToAddress:    "0xto",
			},
		},
	}

	if err := service.SaveMetricsSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("SaveMetricsSnapshot failed: %v", err)
	}

	loaded, err := service.LoadMetricsSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadMetricsSnapshot failed: %v", err)
	}
	if len(loaded.Metrics) != 1 {
		t.Fatalf("Expected 1 metric, got %d", len(loaded.Metrics))
	}

	metric := loaded.Metrics[0]
	if metric.Duration != 1500*time.Millisecond {
		t.Errorf("Expected duration 1.5s, got %v", metric.Duration)
	}
	if metric.PrivacyLevel != models.PrivacySemiPrivate {
		t.Errorf("Expected semi-private, got %s", metric.PrivacyLevel)
	}
	if metric.Status != models.TxSuccess {
		t.Errorf("Expected success, got %s", metric.Status)
	}
}

func TestPrivacyHistoryRoundTrip(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	entries := []models.PrivacyHistoryEntry{
		{
			Id:                 "h1",
			Timestamp:          time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			Level:              models.PrivacyFullPrivate,
			TxHash:             "0xtx",
			TxType:             models.TxTransfer,
			GasCost:            "567000000000000",
			PrivacyGainPercent: 100,
			Notes:              "large transfer",
		},
		{
			Id:        "h2",
			Timestamp: time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC),
			Level:     models.PrivacyPublic,
			TxType:    models.TxUnshield,
			GasCost:   "100",
		},
	}

	if err := service.SavePrivacyHistory(ctx, entries); err != nil {
		t.Fatalf("SavePrivacyHistory failed: %v", err)
	}

	loaded, err := service.LoadPrivacyHistory(ctx)
	if err != nil {
		t.Fatalf("LoadPrivacyHistory failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(loaded))
	}

	// Ordered by timestamp.
	if loaded[0].Id != "h1" || loaded[1].Id != "h2" {
		t.Errorf("Unexpected ordering: %s, %s", loaded[0].Id, loaded[1].Id)
	}
	if loaded[0].PrivacyGainPercent != 100 || loaded[0].Notes != "large transfer" {
		t.Errorf("Entry fields not preserved: %+v", loaded[0])
	}
	if loaded[1].TxHash != "" {
		t.Errorf("Expected empty tx hash, got %q", loaded[1].TxHash)
	}
}

func TestNewService_Validation(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		cfg  models.DatabaseConfig
	}{
		{"empty path", models.DatabaseConfig{MaxOpenConns: 25, PingTimeout: time.Second}},
		{"zero max open conns", models.DatabaseConfig{Path: ":memory:", PingTimeout: time.Second}},
		{"negative idle conns", models.DatabaseConfig{Path: ":memory:", MaxOpenConns: 25, MaxIdleConns: -1, PingTimeout: time.Second}},
		{"zero ping timeout", models.DatabaseConfig{Path: ":memory:", MaxOpenConns: 25}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewService(ctx, tc.cfg); err == nil {
				t.Error("Expected configuration to be rejected")
			}
		})
	}
}
