package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/storage/inmem"
)

type countingStore struct {
	core.RecordStore
	mu    sync.Mutex
	lists int
	err   error
}

func (s *countingStore) ListRecords(ctx context.Context, collection string) ([]core.Record, error) {
	s.mu.Lock()
	s.lists++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.RecordStore.ListRecords(ctx, collection)
}

func (s *countingStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func setup(t *testing.T) (*Store, *countingStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	next := &countingStore{RecordStore: inmemdb.Open()}
	return NewStore(client, next, time.Minute, nil), next, mr
}

func TestStore_readThrough(t *testing.T) {
	ctx := context.Background()
	store, next, mr := setup(t)

	at := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.PutRecord(ctx, "alerts", core.Record{ID: "a1", Body: []byte(`{"id":"a1"}`), UpdatedAt: at}))

	records, err := store.ListRecords(ctx, "alerts")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, mr.Exists(keyPrefix+"alerts"))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"alerts"))

	// served from redis
	records, err = store.ListRecords(ctx, "alerts")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a1", records[0].ID)
	assert.JSONEq(t, `{"id":"a1"}`, string(records[0].Body))
	assert.True(t, at.Equal(records[0].UpdatedAt))
	assert.Equal(t, 1, next.calls())

	// writes evict
	require.NoError(t, store.PutRecord(ctx, "alerts", core.Record{ID: "a2", Body: []byte(`{}`), UpdatedAt: at}))
	assert.False(t, mr.Exists(keyPrefix+"alerts"))
	records, err = store.ListRecords(ctx, "alerts")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, next.calls())

	require.NoError(t, store.DeleteRecord(ctx, "alerts", "a1"))
	assert.False(t, mr.Exists(keyPrefix+"alerts"))

	// expiry
	_, err = store.ListRecords(ctx, "alerts")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = store.ListRecords(ctx, "alerts")
	require.NoError(t, err)
	assert.Equal(t, 4, next.calls())
}

func TestStore_redisDown(t *testing.T) {
	ctx := context.Background()
	store, next, mr := setup(t)
	require.NoError(t, next.PutRecord(ctx, "tickets", core.Record{ID: "TK-1", Body: []byte(`{}`)}))

	mr.Close()
	records, err := store.ListRecords(ctx, "tickets")
	require.NoError(t, err, "redis failures fall back to the store")
	assert.Len(t, records, 1)
}

func TestStore_sourceError(t *testing.T) {
	ctx := context.Background()
	store, next, mr := setup(t)
	next.err = errors.New("db down")

	_, err := store.ListRecords(ctx, "tickets")
	require.Error(t, err)
	assert.False(t, mr.Exists(keyPrefix+"tickets"), "failures are not cached")
}

// pausingStore reads the records, then holds them until released.
type pausingStore struct {
	core.RecordStore
	once    sync.Once
	fetched chan struct{}
	release chan struct{}
}

func (s *pausingStore) ListRecords(ctx context.Context, collection string) ([]core.Record, error) {
	records, err := s.RecordStore.ListRecords(ctx, collection)
	s.once.Do(func() {
		close(s.fetched)
		<-s.release
	})
	return records, err
}

func TestStore_writeDuringFill(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	next := &pausingStore{RecordStore: inmemdb.Open(), fetched: make(chan struct{}), release: make(chan struct{})}
	store := NewStore(client, next, time.Minute, nil)
	require.NoError(t, next.RecordStore.PutRecord(ctx, "tickets", core.Record{ID: "TK-1", Body: []byte(`{"status":"open"}`)}))

	done := make(chan []core.Record)
	go func() {
		records, err := store.ListRecords(ctx, "tickets")
		assert.NoError(t, err)
		done <- records
	}()

	<-next.fetched
	require.NoError(t, store.PutRecord(ctx, "tickets", core.Record{ID: "TK-1", Body: []byte(`{"status":"resolved"}`)}))
	close(next.release)

	old := <-done
	require.Len(t, old, 1)
	assert.JSONEq(t, `{"status":"open"}`, string(old[0].Body), "the reader still gets what it fetched")
	assert.False(t, mr.Exists(keyPrefix+"tickets"), "rows read before the write are not cached")

	records, err := store.ListRecords(ctx, "tickets")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.JSONEq(t, `{"status":"resolved"}`, string(records[0].Body))

	// the fresh read is cached
	assert.True(t, mr.Exists(keyPrefix+"tickets"))
}
