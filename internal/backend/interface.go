package backend

import (
	"context"

	"icried/internal/cloud"
	"icried/internal/journal"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreResult contains the local store and optional cleanup function
type StoreResult struct {
	Store journal.Store
	// Pinger is nil for stores without a health check.
	Pinger  Pinger
	Cleanup CleanupFunc
}

// CloudResult contains the remote record store. Store is nil when cloud
// sync is disabled.
type CloudResult struct {
	Store   cloud.RecordStore
	Breaker *cloud.Breaker
}

// Enabled reports whether a remote store was configured.
func (r *CloudResult) Enabled() bool {
	return r != nil && r.Store != nil
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateStore opens the local journal store.
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	// CreateCloud opens the remote record store wrapped in a circuit breaker.
	CreateCloud(ctx context.Context, config Config) (*CloudResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	Cloud CloudType

	// Google Sheets specific
	GoogleSpreadsheetID   string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// Breaker settings for the cloud store; zero values use the defaults.
	Breaker cloud.BreakerSettings
}

// BackendType represents the type of the local store
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CloudType selects the remote record store.
type CloudType string

const (
	CloudNone   CloudType = "none"
	CloudMemory CloudType = "memory"
	CloudSheets CloudType = "sheets"
)

func (ct CloudType) String() string {
	return string(ct)
}

func (ct CloudType) IsValid() bool {
	switch ct {
	case CloudNone, CloudMemory, CloudSheets:
		return true
	default:
		return false
	}
}
