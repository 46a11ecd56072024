package core

import (
	"context"
	"time"
)

// Record is a whole record as handed to a RecordStore: its stable identifier and its JSON body.
type Record struct {
	ID        string    `db:"id"`
	Body      []byte    `db:"body"`
	UpdatedAt time.Time `db:"updated_at"` // UTC
}

// RecordStore persists whole records keyed by collection name and record ID.
// There is no partial update: PutRecord replaces the stored body.
type RecordStore interface {
	// ListRecords returns the records of a collection in insertion order.
	ListRecords(ctx context.Context, collection string) ([]Record, error)
	// PutRecord inserts or replaces a record. A replaced record keeps its position.
	PutRecord(ctx context.Context, collection string, rec Record) error
	DeleteRecord(ctx context.Context, collection, id string) error
}
