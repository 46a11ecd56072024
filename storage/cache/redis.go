// Package cache is a redis read-through cache in front of a core.RecordStore.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/portal/core"
)

const (
	DefaultTTL = 5 * time.Minute
	keyPrefix  = "portal:records:"
	verPrefix  = "portal:version:"
)

type cachedRecord struct {
	ID        string          `json:"id"`
	Body      json.RawMessage `json:"body"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store caches whole collections. Writes go to the underlying store first, then evict the
// collection from the cache and bump its version. A fill only lands if the version it read
// before fetching is still current. Redis failures fall back to the underlying store.
type Store struct {
	client *redis.Client
	next   core.RecordStore
	ttl    time.Duration
	logger core.Logger
	fills  singleflight.Group
}

var _ core.RecordStore = (*Store)(nil)

func NewStore(client *redis.Client, next core.RecordStore, ttl time.Duration, logger core.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, next: next, ttl: ttl, logger: logger}
}

// NewClient connects to redis and checks the connection.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Username: conf.Redis.Username,
		Password: conf.Redis.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func key(collection string) string { return keyPrefix + collection }

func versionKey(collection string) string { return verPrefix + collection }

func (s *Store) ListRecords(ctx context.Context, collection string) ([]core.Record, error) {
	data, err := s.client.Get(ctx, key(collection)).Bytes()
	switch {
	case err == nil:
		var cached []cachedRecord
		if err := json.Unmarshal(data, &cached); err == nil {
			return fromCache(cached), nil
		}
		s.warn("dropping undecodable cache entry", err, collection)
	case err != redis.Nil:
		s.warn("cache read failed", err, collection)
	}

	ver, err := s.version(ctx, collection)
	if err != nil {
		s.warn("cache version read failed", err, collection)
		return s.next.ListRecords(ctx, collection)
	}

	v, err, _ := s.fills.Do(collection+":"+strconv.FormatInt(ver, 10), func() (interface{}, error) {
		records, err := s.next.ListRecords(ctx, collection)
		if err != nil {
			return nil, err
		}
		s.fill(ctx, collection, ver, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.Record), nil
}

func (s *Store) version(ctx context.Context, collection string) (int64, error) {
	ver, err := s.client.Get(ctx, versionKey(collection)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return ver, err
}

// fill caches records read at version ver, unless a write has bumped the version since.
func (s *Store) fill(ctx context.Context, collection string, ver int64, records []core.Record) {
	cached := make([]cachedRecord, 0, len(records))
	for _, r := range records {
		cached = append(cached, cachedRecord{ID: r.ID, Body: r.Body, UpdatedAt: r.UpdatedAt})
	}
	data, err := json.Marshal(cached)
	if err != nil {
		s.warn("encoding cache entry failed", err, collection)
		return
	}

	vkey := versionKey(collection)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vkey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != ver {
			return nil // stale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(collection), data, s.ttl)
			return nil
		})
		return err
	}, vkey)
	switch {
	case err == redis.TxFailedErr:
		// a write landed between the check and the set
	case err != nil:
		s.warn("cache write failed", err, collection)
	}
}

func fromCache(cached []cachedRecord) []core.Record {
	records := make([]core.Record, 0, len(cached))
	for _, c := range cached {
		records = append(records, core.Record{ID: c.ID, Body: []byte(c.Body), UpdatedAt: c.UpdatedAt})
	}
	return records
}

func (s *Store) PutRecord(ctx context.Context, collection string, rec core.Record) error {
	if err := s.next.PutRecord(ctx, collection, rec); err != nil {
		return err
	}
	s.Invalidate(ctx, collection)
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, collection, id string) error {
	if err := s.next.DeleteRecord(ctx, collection, id); err != nil {
		return err
	}
	s.Invalidate(ctx, collection)
	return nil
}

// Invalidate evicts a collection from the cache and bumps its version so in-flight fills are dropped.
func (s *Store) Invalidate(ctx context.Context, collection string) {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(collection))
		pipe.Del(ctx, key(collection))
		return nil
	})
	if err != nil {
		s.warn("cache eviction failed", err, collection)
	}
}

func (s *Store) warn(msg string, err error, collection string) {
	if s.logger != nil {
		s.logger.Warn(msg, err, map[string]interface{}{"collection": collection})
	}
}
