package backend

import (
	"context"
	"fmt"
	"log/slog"

	"icried/internal/cloud"
	gsheet "icried/internal/cloud/google"
	cloudmem "icried/internal/cloud/memory"
	"icried/internal/storage"
	"icried/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return &StoreResult{Store: repo, Pinger: repo, Cleanup: repo.Close}, nil
	case MemoryBackend:
		store := memory.New()
		f.logger.InfoContext(ctx, "Initialized memory store")
		return &StoreResult{Store: store, Cleanup: store.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateCloud implements Factory.CreateCloud
func (f *DefaultFactory) CreateCloud(ctx context.Context, config Config) (*CloudResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var remote cloud.RecordStore
	switch config.Cloud {
	case "", CloudNone:
		f.logger.InfoContext(ctx, "Cloud sync disabled")
		return &CloudResult{}, nil
	case CloudMemory:
		remote = cloudmem.New()
	case CloudSheets:
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			CredentialsJSON: config.GoogleCredentialsJSON,
			CredentialsFile: config.GoogleCredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		remote = cli
	default:
		return nil, fmt.Errorf("unsupported cloud backend: %s", config.Cloud)
	}

	settings := config.Breaker
	defaults := cloud.DefaultBreakerSettings()
	if settings.Name == "" {
		settings.Name = defaults.Name
	}
	if settings.OpenTimeout == 0 {
		settings.OpenTimeout = defaults.OpenTimeout
	}
	breaker := cloud.NewBreaker(remote, settings)

	f.logger.InfoContext(ctx, "Initialized cloud store", "cloud_backend", config.Cloud.String())
	return &CloudResult{Store: breaker, Breaker: breaker}, nil
}
