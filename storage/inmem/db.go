// Package inmemdb is a core.RecordStore kept in memory, for tests and throwaway runs.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/portal/core"
)

type (
	DB struct {
		mutex  sync.RWMutex
		tables map[string]*table
	}

	table struct {
		order []string // record IDs in insertion order
		rows  map[string]core.Record
	}
)

var _ core.RecordStore = (*DB)(nil)

func Open() *DB {
	return &DB{tables: make(map[string]*table)}
}

func (db *DB) ListRecords(_ context.Context, collection string) ([]core.Record, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	tbl, ok := db.tables[collection]
	if !ok {
		return nil, nil
	}
	records := make([]core.Record, 0, len(tbl.order))
	for _, id := range tbl.order {
		records = append(records, clone(tbl.rows[id]))
	}
	return records, nil
}

func (db *DB) PutRecord(_ context.Context, collection string, rec core.Record) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	tbl, ok := db.tables[collection]
	if !ok {
		tbl = &table{rows: make(map[string]core.Record)}
		db.tables[collection] = tbl
	}
	if _, exists := tbl.rows[rec.ID]; !exists {
		tbl.order = append(tbl.order, rec.ID)
	}
	tbl.rows[rec.ID] = clone(rec)
	return nil
}

func (db *DB) DeleteRecord(_ context.Context, collection, id string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	tbl, ok := db.tables[collection]
	if !ok {
		return nil
	}
	if _, exists := tbl.rows[id]; !exists {
		return nil
	}
	delete(tbl.rows, id)
	for i, rid := range tbl.order {
		if rid == id {
			tbl.order = append(tbl.order[:i:i], tbl.order[i+1:]...)
			break
		}
	}
	return nil
}

// clone detaches the body from the caller's buffer.
func clone(rec core.Record) core.Record {
	rec.Body = append([]byte(nil), rec.Body...)
	return rec
}
