package core

import (
	"context"
	"fmt"

	"placesdir/internal/blob"
	"placesdir/internal/config"
	"placesdir/internal/infra/persistence/memory"
	"placesdir/internal/infra/persistence/postgres"
	"placesdir/internal/infra/persistence/sqlite"
	"placesdir/pkg/domain"
)

// OpenSlot selects the durable slot backend named by cfg.Driver. Backends
// holding a connection also implement io.Closer.
//
//	memory:   process memory, lost on exit
//	sqlite:   embedded database file at cfg.SQLite.Path (default)
//	postgres: PostgreSQL server at cfg.Postgres.DSN
//	fs, s3:   one object in a blob store
func OpenSlot(ctx context.Context, cfg config.Storage) (domain.Slot, error) {
	key := cfg.Key
	if key == "" {
		key = config.DefaultStorageKey
	}
	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}
	switch driver {
	case config.DriverMemory:
		return memory.NewSlot(), nil
	case config.DriverSQLite:
		slot, err := sqlite.Open(ctx, cfg.SQLite.Path, key)
		if err != nil {
			return nil, err
		}
		return slot, nil
	case config.DriverPostgres:
		slot, err := postgres.Open(ctx, cfg.Postgres.DSN, key)
		if err != nil {
			return nil, err
		}
		return slot, nil
	case config.DriverFS, config.DriverS3:
		store, err := blob.Open(ctx, driver, cfg.Blob)
		if err != nil {
			return nil, err
		}
		return blob.NewSlot(store, key), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownDriver, driver)
	}
}
