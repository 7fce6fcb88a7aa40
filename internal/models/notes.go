package models

import "time"

// SyncStatus is the lifecycle state of a note's chain submission.
type SyncStatus string

const (
	SyncPending  SyncStatus = "PENDING"
	SyncSyncing  SyncStatus = "SYNCING"
	SyncSynced   SyncStatus = "SYNCED"
	SyncFailed   SyncStatus = "FAILED"
	SyncRetrying SyncStatus = "RETRYING"
)

// AllSyncStatuses lists every status, for exhaustive per-status counting.
var AllSyncStatuses = []SyncStatus{SyncPending, SyncSyncing, SyncSynced, SyncFailed, SyncRetrying}

// NoteData is the core payload of a shielded-balance note.
type NoteData struct {
	CommitmentHash string       `json:"commitment_hash"`
	EncryptedData  string       `json:"encrypted_data"`
	PrivacyLevel   PrivacyLevel `json:"privacy_level"`
	Timestamp      time.Time    `json:"timestamp"`
	Salt           string       `json:"salt,omitempty"`
	IV             string       `json:"iv,omitempty"`
}

// NoteMetadata carries the bookkeeping state for a stored note.
// PrivacyLevel must always equal the payload's level.
type NoteMetadata struct {
	Id            string       `json:"id"`
	TxHash        string       `json:"tx_hash"`
	FromAddress   string       `json:"from_address"`
	ToAddress     string       `json:"to_address"`
	Amount        string       `json:"amount"` // base units, decimal string
	PrivacyLevel  PrivacyLevel `json:"privacy_level"`
	EncryptedFlag bool         `json:"encrypted_flag"`
	SyncStatus    SyncStatus   `json:"sync_status"`
	CreatedAt     time.Time    `json:"created_at"`
	SyncedAt      *time.Time   `json:"synced_at,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// NoteStatistics summarizes the note store contents.
type NoteStatistics struct {
	TotalNotes          int                  `json:"total_notes"`
	EncryptedNotes      int                  `json:"encrypted_notes"`
	SyncedNotes         int                  `json:"synced_notes"`
	FailedNotes         int                  `json:"failed_notes"`
	PendingNotes        int                  `json:"pending_notes"`
	TotalSize           int64                `json:"total_size"`
	EncryptedSize       int64                `json:"encrypted_size"`
	CompressionRatio    float64              `json:"compression_ratio"`
	AverageSyncSeconds  float64              `json:"average_sync_seconds"`
	NotesByPrivacyLevel map[PrivacyLevel]int `json:"notes_by_privacy_level"`
	NotesByStatus       map[SyncStatus]int   `json:"notes_by_status"`
}

// NoteSnapshot is the versioned export format of the full note store.
// Import replaces the store contents; it never merges.
type NoteSnapshot struct {
	Version    string                  `json:"version"`
	ExportedAt time.Time               `json:"exported_at"`
	Notes      map[string]NoteData     `json:"notes"`
	Metadata   map[string]NoteMetadata `json:"metadata"`
	Statistics NoteStatistics          `json:"statistics"`
}
