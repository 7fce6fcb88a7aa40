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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shielded-notes-go/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service persists wallet snapshots (notes, metrics, privacy history) so
// they survive process restarts. The in-memory managers remain the source of
// truth; this layer only stores and restores their export formats.
type Service struct {
	db *sql.DB
}

// NewService opens the SQLite database and initializes the schema.
func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

// NewServiceWithDB wraps an existing connection (used by tests).
func NewServiceWithDB(db *sql.DB) (*Service, error) {
	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Note payloads and metadata, one row per note
	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		commitment_hash TEXT NOT NULL,
		encrypted_data TEXT NOT NULL,
		privacy_level TEXT NOT NULL,
		payload_timestamp TIMESTAMP NOT NULL,
		salt TEXT,
		iv TEXT,
		tx_hash TEXT NOT NULL,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL,
		amount TEXT NOT NULL,
		encrypted_flag BOOLEAN NOT NULL,
		sync_status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		synced_at TIMESTAMP,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_notes_privacy_level ON notes(privacy_level);
	CREATE INDEX IF NOT EXISTS idx_notes_sync_status ON notes(sync_status);
	CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at);

	-- Transaction metrics recorded by analytics
	CREATE TABLE IF NOT EXISTS metrics (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		tx_hash TEXT NOT NULL,
		privacy_level TEXT NOT NULL,
		amount TEXT NOT NULL,
		gas_used TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(timestamp);
	CREATE INDEX IF NOT EXISTS idx_metrics_privacy_level ON metrics(privacy_level);
	CREATE INDEX IF NOT EXISTS idx_metrics_from_address ON metrics(from_address);
	CREATE INDEX IF NOT EXISTS idx_metrics_to_address ON metrics(to_address);

	-- Privacy decision history
	CREATE TABLE IF NOT EXISTS privacy_history (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		level TEXT NOT NULL,
		tx_hash TEXT,
		tx_type TEXT NOT NULL,
		gas_cost TEXT NOT NULL,
		privacy_gain_percent INTEGER NOT NULL,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_privacy_history_timestamp ON privacy_history(timestamp);
	CREATE INDEX IF NOT EXISTS idx_privacy_history_level ON privacy_history(level);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveNoteSnapshot replaces the persisted note set with the snapshot
// contents, atomically.
func (s *Service) SaveNoteSnapshot(ctx context.Context, snapshot models.NoteSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notes`); err != nil {
		return fmt.Errorf("unable to clear notes: %w", err)
	}

	for id, meta := range snapshot.Metadata {
		data, ok := snapshot.Notes[id]
		if !ok {
			continue
		}
		// Amounts are decimal strings; reject anything unparseable before it
		// reaches durable storage.
		if _, err := decimal.NewFromString(meta.Amount); err != nil {
			return fmt.Errorf("invalid amount for note %s: %w", id, err)
		}

		var syncedAt interface{}
		if meta.SyncedAt != nil {
			syncedAt = *meta.SyncedAt
		}

		_, err := tx.ExecContext(ctx, queryInsertNote,
			id, data.CommitmentHash, data.EncryptedData, string(data.PrivacyLevel),
			data.Timestamp, data.Salt, data.IV,
			meta.TxHash, meta.FromAddress, meta.ToAddress, meta.Amount,
			meta.EncryptedFlag, string(meta.SyncStatus), meta.CreatedAt, syncedAt, meta.Error)
		if err != nil {
			return fmt.Errorf("unable to insert note %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit note snapshot: %w", err)
	}

	zap.L().Info("Note snapshot persisted", zap.Int("notes", len(snapshot.Metadata)))
	return nil
}

// LoadNoteSnapshot reads the persisted note set back into snapshot form.
// An empty database yields an empty but well-formed snapshot.
func (s *Service) LoadNoteSnapshot(ctx context.Context) (models.NoteSnapshot, error) {
	snapshot := models.NoteSnapshot{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Notes:      make(map[string]models.NoteData),
		Metadata:   make(map[string]models.NoteMetadata),
	}

	rows, err := s.db.QueryContext(ctx, querySelectNotes)
	if err != nil {
		return snapshot, fmt.Errorf("unable to query notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			data     models.NoteData
			meta     models.NoteMetadata
			level    string
			status   string
			salt     sql.NullString
			iv       sql.NullString
			syncedAt sql.NullTime
			errMsg   sql.NullString
		)
		err := rows.Scan(&meta.Id, &data.CommitmentHash, &data.EncryptedData, &level,
			&data.Timestamp, &salt, &iv,
			&meta.TxHash, &meta.FromAddress, &meta.ToAddress, &meta.Amount,
			&meta.EncryptedFlag, &status, &meta.CreatedAt, &syncedAt, &errMsg)
		if err != nil {
			return snapshot, fmt.Errorf("unable to scan note row: %w", err)
		}

		data.PrivacyLevel = models.PrivacyLevel(level)
		data.Salt = salt.String
		data.IV = iv.String
		meta.PrivacyLevel = models.PrivacyLevel(level)
		meta.SyncStatus = models.SyncStatus(status)
		if syncedAt.Valid {
			t := syncedAt.Time
			meta.SyncedAt = &t
		}
		meta.Error = errMsg.String

		snapshot.Notes[meta.Id] = data
		snapshot.Metadata[meta.Id] = meta
	}
	if err := rows.Err(); err != nil {
		return snapshot, fmt.Errorf("error iterating note rows: %w", err)
	}

	return snapshot, nil
}

// SaveMetricsSnapshot replaces the persisted metric set, atomically.
func (s *Service) SaveMetricsSnapshot(ctx context.Context, snapshot models.MetricsSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM metrics`); err != nil {
		return fmt.Errorf("unable to clear metrics: %w", err)
	}

	for _, metric := range snapshot.Metrics {
		if _, err := decimal.NewFromString(metric.Amount); err != nil {
			return fmt.Errorf("invalid amount for metric %s: %w", metric.Id, err)
		}
		_, err := tx.ExecContext(ctx, queryInsertMetric,
			metric.Id, metric.Timestamp, metric.TxHash, string(metric.PrivacyLevel),
			metric.Amount, metric.GasUsed, string(metric.Status),
			metric.Duration.Milliseconds(), metric.FromAddress, metric.ToAddress)
		if err != nil {
			return fmt.Errorf("unable to insert metric %s: %w", metric.Id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit metrics snapshot: %w", err)
	}

	zap.L().Info("Metrics snapshot persisted", zap.Int("metrics", len(snapshot.Metrics)))
	return nil
}

// LoadMetricsSnapshot reads the persisted metric set back.
func (s *Service) LoadMetricsSnapshot(ctx context.Context) (models.MetricsSnapshot, error) {
	snapshot := models.MetricsSnapshot{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Metrics:    []models.TransactionMetric{},
	}

	rows, err := s.db.QueryContext(ctx, querySelectMetrics)
	if err != nil {
		return snapshot, fmt.Errorf("unable to query metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			metric     models.TransactionMetric
			level      string
			status     string
			durationMs int64
		)
		err := rows.Scan(&metric.Id, &metric.Timestamp, &metric.TxHash, &level,
			&metric.Amount, &metric.GasUsed, &status, &durationMs,
			&metric.FromAddress, &metric.ToAddress)
		if err != nil {
			return snapshot, fmt.Errorf("unable to scan metric row: %w", err)
		}
		metric.PrivacyLevel = models.PrivacyLevel(level)
		metric.Status = models.TxStatus(status)
		metric.Duration = time.Duration(durationMs) * time.Millisecond
		snapshot.Metrics = append(snapshot.Metrics, metric)
	}
	if err := rows.Err(); err != nil {
		return snapshot, fmt.Errorf("error iterating metric rows: %w", err)
	}

	return snapshot, nil
}

// SavePrivacyHistory replaces the persisted privacy decision history,
// atomically.
func (s *Service) SavePrivacyHistory(ctx context.Context, entries []models.PrivacyHistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM privacy_history`); err != nil {
		return fmt.Errorf("unable to clear privacy history: %w", err)
	}

	for _, entry := range entries {
		_, err := tx.ExecContext(ctx, queryInsertHistoryEntry,
			entry.Id, entry.Timestamp, string(entry.Level), entry.TxHash,
			string(entry.TxType), entry.GasCost, entry.PrivacyGainPercent, entry.Notes)
		if err != nil {
			return fmt.Errorf("unable to insert history entry %s: %w", entry.Id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit privacy history: %w", err)
	}
	return nil
}

// LoadPrivacyHistory reads the persisted privacy decision history back.
func (s *Service) LoadPrivacyHistory(ctx context.Context) ([]models.PrivacyHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, querySelectHistory)
	if err != nil {
		return nil, fmt.Errorf("unable to query privacy history: %w", err)
	}
	defer rows.Close()

	entries := []models.PrivacyHistoryEntry{}
	for rows.Next() {
		var (
			entry  models.PrivacyHistoryEntry
			level  string
			txType string
			txHash sql.NullString
			notes  sql.NullString
		)
		err := rows.Scan(&entry.Id, &entry.Timestamp, &level, &txHash,
			&txType, &entry.GasCost, &entry.PrivacyGainPercent, &notes)
		if err != nil {
			return nil, fmt.Errorf("unable to scan history row: %w", err)
		}
		entry.Level = models.PrivacyLevel(level)
		entry.TxType = models.TxType(txType)
		entry.TxHash = txHash.String
		entry.Notes = notes.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return entries, nil
}
