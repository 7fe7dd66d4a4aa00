package persistence

import (
	"context"
	"fmt"

	"shelterdb/internal/blob"
	blobkv "shelterdb/internal/infra/persistence/blob"
	"shelterdb/internal/infra/persistence/memory"
	"shelterdb/internal/infra/persistence/postgres"
	"shelterdb/internal/infra/persistence/sqlite"
)

// Config selects an overlay backend. Defaults to sqlite when Driver is unset.
//
//	Driver:      memory|sqlite|postgres|blob (default sqlite)
//	QuotaBytes:  byte cap when Driver=memory (0 disables)
//	SQLitePath:  path to sqlite file (default ./shelter.db)
//	PostgresDSN: postgres DSN when Driver=postgres
//	BlobPrefix:  key prefix when Driver=blob (default overlay/)
type Config struct {
	Driver      Driver
	QuotaBytes  int64
	SQLitePath  string
	PostgresDSN string
	BlobPrefix  string
}

// Closer is implemented by backends holding OS resources.
type Closer interface{ Close() error }

// Open constructs the Store described by cfg. blobs backs the blob driver and
// may be nil for the others.
func Open(ctx context.Context, cfg Config, blobs blob.Store) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverMemory:
		return memory.NewStore(memory.WithQuota(cfg.QuotaBytes)), nil
	case DriverSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case DriverBlob:
		if blobs == nil {
			return nil, fmt.Errorf("blob storage driver requires a blob store")
		}
		return blobkv.NewStore(blobs, cfg.BlobPrefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// NewMemory returns an in-memory Store, optionally capped at quota bytes.
func NewMemory(quota int64) Store { return memory.NewStore(memory.WithQuota(quota)) }

// Close releases backend resources when the store holds any.
func Close(s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
