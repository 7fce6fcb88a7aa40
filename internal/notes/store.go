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

package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"shielded-notes-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sentinel errors raised by the note store.
var (
	ErrNoteNotFound    = errors.New("note not found")
	ErrStoreFull       = errors.New("maximum number of notes reached")
	ErrInvalidSnapshot = errors.New("invalid note snapshot format")
	ErrLevelMismatch   = errors.New("metadata privacy level does not match payload")
)

const snapshotVersion = "1.0"

// Default store limits.
const (
	DefaultMaxNotes       = 10000
	DefaultMaxStorageSize = int64(1000000000) // 1 GB
)

// CreateNoteParams carries the caller-supplied metadata for a new note.
// Id, creation time and sync status are assigned by the store.
type CreateNoteParams struct {
	TxHash        string
	FromAddress   string
	ToAddress     string
	Amount        string
	PrivacyLevel  models.PrivacyLevel
	EncryptedFlag bool
}

// Store owns the durable collection of notes and their metadata. It is the
// single writer for note lifecycle state. Safe for concurrent use.
type Store struct {
	mu             sync.Mutex
	notes          map[string]models.NoteData
	metadata       map[string]models.NoteMetadata
	totalSize      int64
	lastSyncTime   time.Time
	maxNotes       int
	maxStorageSize int64
}

// NewStore builds a Store with the given limits. Non-positive limits fall
// back to the defaults.
func NewStore(cfg models.NotesConfig) *Store {
	maxNotes := cfg.MaxNotes
	if maxNotes <= 0 {
		maxNotes = DefaultMaxNotes
	}
	maxStorage := cfg.MaxStorageSize
	if maxStorage <= 0 {
		maxStorage = DefaultMaxStorageSize
	}
	return &Store{
		notes:          make(map[string]models.NoteData),
		metadata:       make(map[string]models.NoteMetadata),
		maxNotes:       maxNotes,
		maxStorageSize: maxStorage,
	}
}

// Create stores a new note and returns its generated metadata. The note
// starts in PENDING status.
func (s *Store) Create(data models.NoteData, params CreateNoteParams) (models.NoteMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.notes) >= s.maxNotes {
		return models.NoteMetadata{}, fmt.Errorf("%w (%d)", ErrStoreFull, s.maxNotes)
	}
	if params.PrivacyLevel != data.PrivacyLevel {
		return models.NoteMetadata{}, fmt.Errorf("%w: metadata %s, payload %s",
			ErrLevelMismatch, params.PrivacyLevel, data.PrivacyLevel)
	}

	meta := models.NoteMetadata{
		Id:            uuid.New().String(),
		TxHash:        params.TxHash,
		FromAddress:   params.FromAddress,
		ToAddress:     params.ToAddress,
		Amount:        params.Amount,
		PrivacyLevel:  params.PrivacyLevel,
		EncryptedFlag: params.EncryptedFlag,
		SyncStatus:    models.SyncPending,
		CreatedAt:     time.Now(),
	}

	s.notes[meta.Id] = data
	s.metadata[meta.Id] = meta
	s.rescanSizeLocked()

	zap.L().Debug("Note created",
		zap.String("id", meta.Id),
		zap.String("privacy_level", string(meta.PrivacyLevel)),
		zap.Int("total_notes", len(s.notes)))

	return meta, nil
}

// Note returns a note payload by id.
func (s *Store) Note(id string) (models.NoteData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.notes[id]
	return data, ok
}

// Metadata returns note metadata by id.
func (s *Store) Metadata(id string) (models.NoteMetadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.metadata[id]
	return meta, ok
}

// Notes returns all note payloads. A positive limit truncates the result.
func (s *Store) Notes(limit int) []models.NoteData {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.NoteData, 0, len(s.notes))
	for _, data := range s.notes {
		out = append(out, data)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AllMetadata returns all note metadata. A positive limit truncates the result.
func (s *Store) AllMetadata(limit int) []models.NoteMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.NoteMetadata, 0, len(s.metadata))
	for _, meta := range s.metadata {
		out = append(out, meta)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ByPrivacyLevel returns metadata for notes at one privacy level.
func (s *Store) ByPrivacyLevel(level models.PrivacyLevel) []models.NoteMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.NoteMetadata{}
	for _, meta := range s.metadata {
		if meta.PrivacyLevel == level {
			out = append(out, meta)
		}
	}
	return out
}

// ByStatus returns metadata for notes in one sync status.
func (s *Store) ByStatus(status models.SyncStatus) []models.NoteMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.NoteMetadata{}
	for _, meta := range s.metadata {
		if meta.SyncStatus == status {
			out = append(out, meta)
		}
	}
	return out
}

// UpdateStatus mutates a note's sync status. syncedAt and errMsg are
// optional; a nil/empty value leaves the existing field untouched.
func (s *Store) UpdateStatus(id string, status models.SyncStatus, syncedAt *time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.metadata[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}

	meta.SyncStatus = status
	if syncedAt != nil {
		meta.SyncedAt = syncedAt
	}
	if errMsg != "" {
		meta.Error = errMsg
	}
	s.metadata[id] = meta
	return nil
}

// Delete removes a note and its metadata.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, id)
	delete(s.metadata, id)
	s.rescanSizeLocked()
}

// Clear removes every note.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = make(map[string]models.NoteData)
	s.metadata = make(map[string]models.NoteMetadata)
	s.totalSize = 0
}

// Count returns the number of stored notes.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

// Statistics computes a full summary of the store contents.
func (s *Store) Statistics() models.NoteStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statisticsLocked()
}

func (s *Store) statisticsLocked() models.NoteStatistics {
	byLevel := make(map[models.PrivacyLevel]int, len(models.AllPrivacyLevels))
	for _, level := range models.AllPrivacyLevels {
		byLevel[level] = 0
	}
	byStatus := make(map[models.SyncStatus]int, len(models.AllSyncStatuses))
	for _, status := range models.AllSyncStatuses {
		byStatus[status] = 0
	}

	encryptedNotes := 0
	var encryptedSize int64
	var syncSecondsTotal float64
	syncSamples := 0

	for id, meta := range s.metadata {
		byLevel[meta.PrivacyLevel]++
		byStatus[meta.SyncStatus]++
		if meta.EncryptedFlag {
			encryptedNotes++
			if data, ok := s.notes[id]; ok {
				encryptedSize += estimateSize(data)
			}
		}
		if meta.SyncedAt != nil && !meta.CreatedAt.IsZero() {
			syncSecondsTotal += meta.SyncedAt.Sub(meta.CreatedAt).Seconds()
			syncSamples++
		}
	}

	averageSync := 0.0
	if syncSamples > 0 {
		averageSync = syncSecondsTotal / float64(syncSamples)
	}

	return models.NoteStatistics{
		TotalNotes:          len(s.notes),
		EncryptedNotes:      encryptedNotes,
		SyncedNotes:         byStatus[models.SyncSynced],
		FailedNotes:         byStatus[models.SyncFailed],
		PendingNotes:        byStatus[models.SyncPending],
		TotalSize:           s.totalSize,
		EncryptedSize:       encryptedSize,
		CompressionRatio:    compressionRatio(byLevel[models.PrivacyFullPrivate]),
		AverageSyncSeconds:  averageSync,
		NotesByPrivacyLevel: byLevel,
		NotesByStatus:       byStatus,
	}
}

// compressionRatio estimates the achievable compression from the
// full-private note population.
func compressionRatio(fullPrivateCount int) float64 {
	ratio := float64(fullPrivateCount) * 0.0015
	if ratio > 0.3 {
		return 0.3
	}
	return ratio
}

// Export snapshots the complete store contents for backup.
func (s *Store) Export() models.NoteSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes := make(map[string]models.NoteData, len(s.notes))
	for id, data := range s.notes {
		notes[id] = data
	}
	metadata := make(map[string]models.NoteMetadata, len(s.metadata))
	for id, meta := range s.metadata {
		metadata[id] = meta
	}

	return models.NoteSnapshot{
		Version:    snapshotVersion,
		ExportedAt: time.Now(),
		Notes:      notes,
		Metadata:   metadata,
		Statistics: s.statisticsLocked(),
	}
}

// Import replaces the entire store contents with the snapshot. It never merges.
func (s *Store) Import(snapshot models.NoteSnapshot) error {
	if snapshot.Version == "" || snapshot.Notes == nil || snapshot.Metadata == nil {
		return ErrInvalidSnapshot
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes = make(map[string]models.NoteData, len(snapshot.Notes))
	for id, data := range snapshot.Notes {
		s.notes[id] = data
	}
	s.metadata = make(map[string]models.NoteMetadata, len(snapshot.Metadata))
	for id, meta := range snapshot.Metadata {
		s.metadata[id] = meta
	}
	s.rescanSizeLocked()

	zap.L().Info("Note snapshot imported",
		zap.String("version", snapshot.Version),
		zap.Int("notes", len(s.notes)))
	return nil
}

// estimateSize approximates a note's storage footprint from its JSON encoding.
func estimateSize(data models.NoteData) int64 {
	encoded, err := json.Marshal(data)
	if err != nil {
		return 0
	}
	return int64(len(encoded))
}

// rescanSizeLocked recomputes the total size from scratch. Full rescan after
// every mutation keeps the counter drift-free; incremental tracking is not
// worth the invariant.
func (s *Store) rescanSizeLocked() {
	var total int64
	for _, data := range s.notes {
		total += estimateSize(data)
	}
	s.totalSize = total
}

// TotalSize returns the current storage footprint in bytes.
func (s *Store) TotalSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSize
}

// StorageLimitExceeded reports whether the byte-size limit is exceeded.
func (s *Store) StorageLimitExceeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSize > s.maxStorageSize
}

// RemainingStorage returns the unused byte capacity, floored at zero.
func (s *Store) RemainingStorage() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.maxStorageSize - s.totalSize
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StoragePercentUsed returns the used fraction of the byte-size limit as a
// percentage.
func (s *Store) StoragePercentUsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.totalSize) / float64(s.maxStorageSize) * 100
}

// SetLastSyncTime records when the store last completed a sync.
func (s *Store) SetLastSyncTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSyncTime = t
}

// TimeSinceLastSync returns the elapsed time since the last recorded sync.
func (s *Store) TimeSinceLastSync() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastSyncTime)
}
