package notes

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"shielded-notes-go/internal/models"
)

func testNote(level models.PrivacyLevel) (models.NoteData, CreateNoteParams) {
	data := models.NoteData{
		CommitmentHash: "0xcommit",
		EncryptedData:  "payload",
		PrivacyLevel:   level,
		Timestamp:      time.Now(),
	}
	params := CreateNoteParams{
		TxHash:        "0xtx",
		FromAddress:   "0x1111111111111111111111111111111111111111",
		ToAddress:     "0x2222222222222222222222222222222222222222",
		Amount:        "1000000000000000000",
		PrivacyLevel:  level,
		EncryptedFlag: level != models.PrivacyPublic,
	}
	return data, params
}

func TestCreate(t *testing.T) {
	store := NewStore(models.NotesConfig{})

	data, params := testNote(models.PrivacyFullPrivate)
	meta, err := store.Create(data, params)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if meta.Id == "" {
		t.Error("Expected a generated id")
	}
	if meta.SyncStatus != models.SyncPending {
		t.Errorf("Expected PENDING status, got %s", meta.SyncStatus)
	}
	if meta.CreatedAt.IsZero() {
		t.Error("Expected creation timestamp")
	}
	if store.Count() != 1 {
		t.Errorf("Expected 1 note, got %d", store.Count())
	}
}

func TestCreate_CapacityLimit(t *testing.T) {
	store := NewStore(models.NotesConfig{MaxNotes: 3})

	for i := 0; i < 3; i++ {
		data, params := testNote(models.PrivacyPublic)
		if _, err := store.Create(data, params); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	data, params := testNote(models.PrivacyPublic)
	_, err := store.Create(data, params)
	if !errors.Is(err, ErrStoreFull) {
		t.Errorf("Expected ErrStoreFull, got %v", err)
	}
	if store.Count() != 3 {
		t.Errorf("Expected count to stay at 3, got %d", store.Count())
	}
}

func TestCreate_LevelMismatch(t *testing.T) {
	store := NewStore(models.NotesConfig{})

	data, params := testNote(models.PrivacyFullPrivate)
	params.PrivacyLevel = models.PrivacyPublic
	_, err := store.Create(data, params)
	if !errors.Is(err, ErrLevelMismatch) {
		t.Errorf("Expected ErrLevelMismatch, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	store := NewStore(models.NotesConfig{})

	data, params := testNote(models.PrivacySemiPrivate)
	meta, err := store.Create(data, params)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	syncedAt := time.Now()
	if err := store.UpdateStatus(meta.Id, models.SyncSynced, &syncedAt, ""); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	updated, ok := store.Metadata(meta.Id)
	if !ok {
		t.Fatal("Metadata missing after update")
	}
	if updated.SyncStatus != models.SyncSynced {
		t.Errorf("Expected SYNCED, got %s", updated.SyncStatus)
	}
	if updated.SyncedAt == nil || !updated.SyncedAt.Equal(syncedAt) {
		t.Error("Expected synced timestamp to be set")
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	store := NewStore(models.NotesConfig{})

	err := store.UpdateStatus("missing", models.SyncSynced, nil, "")
	if !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("Expected ErrNoteNotFound, got %v", err)
	}
}

func TestFiltering(t *testing.T) {
	store := NewStore(models.NotesConfig{})

	for _, level := range models.AllPrivacyLevels {
		data, params := testNote(level)
		if _, err := store.Create(data, params); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	fullPrivate := store.ByPrivacyLevel(models.PrivacyFullPrivate)
	if len(fullPrivate) != 1 {
		t.Errorf("Expected 1 full-private note, got %d", len(fullPrivate))
	}

	pending := store.ByStatus(models.SyncPending)
	if len(pending) != 3 {
		t.Errorf("Expected 3 pending notes, got %d", len(pending))
	}
	if len(store.ByStatus(models.SyncSynced)) != 0 {
		t.Error("Expected no synced notes")
	}
}

func TestStatistics(t *testing.T) {
	store := NewStore(models.NotesConfig{})

	for _, level := range models.AllPrivacyLevels {
		data, params := testNote(level)
		meta, err := store.Create(data, params)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if level == models.PrivacyFullPrivate {
			syncedAt := meta.CreatedAt.Add(2 * time.Second)
			if err := store.UpdateStatus(meta.Id, models.SyncSynced, &syncedAt, ""); err != nil {
				t.Fatalf("UpdateStatus failed: %v", err)
			}
		}
	}

	stats := store.Statistics()
	if stats.TotalNotes != 3 {
		t.Errorf("Expected 3 notes, got %d", stats.TotalNotes)
	}
	if stats.EncryptedNotes != 2 {
		t.Errorf("Expected 2 encrypted notes, got %d", stats.EncryptedNotes)
	}
	if stats.SyncedNotes != 1 || stats.PendingNotes != 2 {
		t.Errorf("Unexpected status counts: synced=%d pending=%d", stats.SyncedNotes, stats.PendingNotes)
	}
	if stats.TotalSize <= 0 {
		t.Error("Expected positive total size")
	}
	if stats.AverageSyncSeconds < 1.9 || stats.AverageSyncSeconds > 2.1 {
		t.Errorf("Expected average sync around 2s, got %f", stats.AverageSyncSeconds)
	}
	for _, level := range models.AllPrivacyLevels {
		if _, ok := stats.NotesByPrivacyLevel[level]; !ok {
			t.Errorf("Expected level %s present in breakdown", level)
		}
	}
}

func TestCompressionRatioCap(t *testing.T) {
	if got := compressionRatio(0); got != 0 {
		t.Errorf("Expected 0, got %f", got)
	}
	if got := compressionRatio(100); got != 0.15 {
		t.Errorf("Expected 0.15, got %f", got)
	}
	if got := compressionRatio(1000); got != 0.3 {
		t.Errorf("Expected cap at 0.3, got %f", got)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	store := NewStore(models.NotesConfig{})

	for _, level := range models.AllPrivacyLevels {
		data, params := testNote(level)
		if _, err := store.Create(data, params); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	snapshot := store.Export()
	if snapshot.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", snapshot.Version)
	}
	if len(snapshot.Notes) != 3 || len(snapshot.Metadata) != 3 {
		t.Fatalf("Unexpected snapshot sizes: %d notes, %d metadata", len(snapshot.Notes), len(snapshot.Metadata))
	}

	store.Clear()
	if store.Count() != 0 {
		t.Fatal("Expected empty store after clear")
	}

	if err := store.Import(snapshot); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if store.Count() != 3 {
		t.Errorf("Expected 3 notes after import, got %d", store.Count())
	}
	if store.TotalSize() <= 0 {
		t.Error("Expected size recomputed after import")
	}
}

func TestImport_Replaces(t *testing.T) {
	store := NewStore(models.NotesConfig{})

	data, params := testNote(models.PrivacyPublic)
	if _, err := store.Create(data, params); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	snapshot := store.Export()

	// Two more notes that the import must discard.
	for i := 0; i < 2; i++ {
		data, params := testNote(models.PrivacySemiPrivate)
		if _, err := store.Create(data, params); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	if err := store.Import(snapshot); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("Expected import to replace contents, got %d notes", store.Count())
	}
}

func TestImport_InvalidSnapshot(t *testing.T) {
	store := NewStore(models.NotesConfig{})

	err := store.Import(models.NoteSnapshot{Version: "1.0"})
	if !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("Expected ErrInvalidSnapshot, got %v", err)
	}
	err = store.Import(models.NoteSnapshot{
		Notes:    map[string]models.NoteData{},
		Metadata: map[string]models.NoteMetadata{},
	})
	if !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("Expected ErrInvalidSnapshot for missing version, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := NewStore(models.NotesConfig{})

	data, params := testNote(models.PrivacyPublic)
	meta, err := store.Create(data, params)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	store.Delete(meta.Id)
	if store.Count() != 0 {
		t.Error("Expected empty store after delete")
	}
	if store.TotalSize() != 0 {
		t.Errorf("Expected zero size after delete, got %d", store.TotalSize())
	}
}

func TestStorageAccounting(t *testing.T) {
	store := NewStore(models.NotesConfig{MaxStorageSize: 10000})

	data, params := testNote(models.PrivacyFullPrivate)
	if _, err := store.Create(data, params); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if store.StorageLimitExceeded() {
		t.Error("Did not expect storage limit exceeded")
	}
	if store.RemainingStorage() <= 0 {
		t.Error("Expected remaining storage")
	}
	used := store.StoragePercentUsed()
	if used <= 0 || used >= 100 {
		t.Errorf("Unexpected percent used: %f", used)
	}
	if fmt.Sprintf("%d", store.TotalSize()+store.RemainingStorage()) != "10000" {
		t.Errorf("Size accounting mismatch: total=%d remaining=%d", store.TotalSize(), store.RemainingStorage())
	}
}

func TestLastSyncTime(t *testing.T) {
	store := NewStore(models.NotesConfig{})

	store.SetLastSyncTime(time.Now().Add(-time.Minute))
	elapsed := store.TimeSinceLastSync()
	if elapsed < 59*time.Second || elapsed > 2*time.Minute {
		t.Errorf("Unexpected elapsed time: %v", elapsed)
	}
}
