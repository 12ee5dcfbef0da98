package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"guildkit/datastore"
	"guildkit/internal/config"
)

// KV is a string-keyed store of JSON values. Implementations give no
// transactional guarantees: concurrent writers to one key are last-writer-wins.
type KV interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Open returns the KV backend for driver. The none driver returns a nil KV
// and no error; callers treat that as "persistence not configured".
func Open(ctx context.Context, driver, location string) (KV, error) {
	var (
		kv  KV
		err error
	)
	switch driver {
	case config.DriverJSON:
		var ds *datastore.DataStore
		if ds, err = datastore.New(location); err == nil {
			kv = ds
		}
	case config.DriverSQLite:
		var db *SQLite
		if db, err = OpenSQLite(ctx, location); err == nil {
			kv = db
		}
	case config.DriverPostgres:
		var pg *Postgres
		if pg, err = OpenPostgres(ctx, location); err == nil {
			kv = pg
		}
	case config.DriverNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", driver, err)
	}
	return kv, nil
}
