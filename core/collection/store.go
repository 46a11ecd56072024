package collection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/view"
)

// StoreAdapter reads and writes records of one kind as JSON bodies in a core.RecordStore.
// It is both the Source and the Saver of a Collection.
type StoreAdapter[T any] struct {
	store  core.RecordStore
	schema view.Schema[T]
	now    func() time.Time
}

var (
	_ Source[struct{}] = (*StoreAdapter[struct{}])(nil) // interface compliance check
	_ Saver[struct{}]  = (*StoreAdapter[struct{}])(nil)
)

func NewStoreAdapter[T any](store core.RecordStore, schema view.Schema[T]) *StoreAdapter[T] {
	return &StoreAdapter[T]{
		store:  store,
		schema: schema,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *StoreAdapter[T]) Fetch(ctx context.Context) ([]T, error) {
	raw, err := a.store.ListRecords(ctx, a.schema.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", a.schema.Name)
	}
	records := make([]T, 0, len(raw))
	for _, r := range raw {
		var rec T
		if err := json.Unmarshal(r.Body, &rec); err != nil {
			return nil, errors.Wrapf(err, "decoding %s %s", a.schema.Name, r.ID)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (a *StoreAdapter[T]) Save(ctx context.Context, rec T) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", a.schema.Name)
	}
	return a.store.PutRecord(ctx, a.schema.Name, core.Record{ID: a.schema.ID(rec), Body: body, UpdatedAt: a.now()})
}

func (a *StoreAdapter[T]) Delete(ctx context.Context, id string) error {
	return a.store.DeleteRecord(ctx, a.schema.Name, id)
}

// SeedIfEmpty saves records when the store holds none of this kind yet.
// It returns the number of records saved.
func (a *StoreAdapter[T]) SeedIfEmpty(ctx context.Context, records []T) (int, error) {
	existing, err := a.store.ListRecords(ctx, a.schema.Name)
	if err != nil {
		return 0, errors.Wrapf(err, "listing %s", a.schema.Name)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for _, rec := range records {
		if err := a.Save(ctx, rec); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}
