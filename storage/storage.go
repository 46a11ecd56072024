// Package storage opens the record store selected by the configuration.
package storage

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/storage/cache"
	"github.com/trezcool/portal/storage/database"
	sqlxrepos "github.com/trezcool/portal/storage/database/sqlx"
	inmemdb "github.com/trezcool/portal/storage/inmem"
	"github.com/trezcool/portal/storage/localstore"
)

const (
	BackendSQL    = "sql"
	BackendMemory = "memory"
	BackendFile   = "file"
)

// Open returns the configured record store, wrapped in the redis cache when an address is set.
// The returned close func releases every connection it opened.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (core.RecordStore, func() error, error) {
	var (
		store  core.RecordStore
		closes []func() error
	)

	switch conf.Store.Backend {
	case BackendSQL, "":
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, nil, err
		}
		closes = append(closes, db.Close)
		if err = database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		store = sqlxrepos.NewRecordStore(db)
	case BackendMemory:
		store = inmemdb.Open()
	case BackendFile:
		fs, err := localstore.Open(filepath.Join(conf.Store.DataDir, "records"))
		if err != nil {
			return nil, nil, err
		}
		store = fs
	default:
		return nil, nil, errors.Errorf("unknown store backend %q", conf.Store.Backend)
	}

	store, closeCache, err := WithCache(ctx, conf, store, logger)
	if err != nil {
		_ = closeAll(closes)
		return nil, nil, err
	}
	closes = append(closes, closeCache)

	return store, func() error { return closeAll(closes) }, nil
}

// WithCache wraps store in the redis cache when a redis address is configured.
func WithCache(ctx context.Context, conf *core.Config, store core.RecordStore, logger core.Logger) (core.RecordStore, func() error, error) {
	if conf.Redis.Address == "" {
		return store, func() error { return nil }, nil
	}
	client, err := cache.NewClient(ctx, conf)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewStore(client, store, conf.Redis.TTL, logger), client.Close, nil
}

func closeAll(closes []func() error) error {
	var first error
	for i := len(closes) - 1; i >= 0; i-- {
		if err := closes[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
