package common

import (
	"context"
	"log"
	"strings"

	"shielded-notes-go/internal/analytics"
	"shielded-notes-go/internal/config"
	"shielded-notes-go/internal/database"
	"shielded-notes-go/internal/models"
	"shielded-notes-go/internal/notes"
	"shielded-notes-go/internal/privacy"
	"shielded-notes-go/internal/syncer"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	}
}

type Services struct {
	DbService *database.Service
	Notes     *notes.Store
	Encryptor *notes.Encryptor
	Sync      *syncer.Manager
	Analytics *analytics.Manager
	Privacy   *privacy.Manager
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	syncManager := syncer.NewManager(nil)
	if cfg.Sync.ConfigFile != "" {
		overrides, err := config.LoadSyncOverrides(cfg.Sync.ConfigFile)
		if err != nil {
			dbService.Close()
			return nil, err
		}
		for level, syncCfg := range overrides {
			if err := syncManager.UpdateConfig(level, syncCfg); err != nil {
				dbService.Close()
				return nil, err
			}
		}
		zap.L().Info("Applied sync config overrides",
			zap.String("file", cfg.Sync.ConfigFile),
			zap.Int("levels", len(overrides)))
	}

	return &Services{
		DbService: dbService,
		Notes:     notes.NewStore(cfg.Notes),
		Encryptor: notes.NewEncryptor(),
		Sync:      syncManager,
		Analytics: analytics.NewManager(cfg.Analytics),
		Privacy:   privacy.NewDefaultManager(),
	}, nil
}

// InitializeDatabaseOnly initializes just the database service.
// Useful for read-only operations like printing statistics.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
