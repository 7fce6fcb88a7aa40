package models

import "time"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	Notes     NotesConfig
	Analytics AnalyticsConfig
	Sync      SyncFileConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// NotesConfig holds note store limits
type NotesConfig struct {
	MaxNotes       int
	MaxStorageSize int64
}

// AnalyticsConfig holds analytics tuning knobs
type AnalyticsConfig struct {
	AnomalyCacheTimeout time.Duration
	AnomalyWindow       time.Duration
}

// SyncFileConfig points at the optional per-level sync override file
type SyncFileConfig struct {
	ConfigFile         string
	CheckpointInterval time.Duration
}
