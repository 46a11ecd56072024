package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
)

const (
	listRecordsQuery = `SELECT id, body, updated_at FROM records WHERE collection = ? ORDER BY seq`

	updateRecordQuery = `UPDATE records SET body = ?, updated_at = ? WHERE collection = ? AND id = ?`

	insertRecordQuery = `INSERT INTO records (collection, id, seq, body, updated_at)
VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records), ?, ?)`

	deleteRecordQuery = `DELETE FROM records WHERE collection = ? AND id = ?`
)

// recordRow is the scan target of a records row; body is TEXT in every engine.
type recordRow struct {
	ID        string       `db:"id"`
	Body      string       `db:"body"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

// RecordStore keeps whole records as JSON bodies in the records table.
type RecordStore struct {
	db *sqlx.DB
}

var _ core.RecordStore = (*RecordStore)(nil)

func NewRecordStore(db *sqlx.DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) ListRecords(ctx context.Context, collection string) ([]core.Record, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(listRecordsQuery), collection); err != nil {
		return nil, errors.Wrapf(err, "selecting %s", collection)
	}
	records := make([]core.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, core.Record{ID: r.ID, Body: []byte(r.Body), UpdatedAt: r.UpdatedAt.Time.UTC()})
	}
	return records, nil
}

// PutRecord updates the record in place, or appends it to the collection.
func (s *RecordStore) PutRecord(ctx context.Context, collection string, rec core.Record) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err == nil {
			return
		}
		// the record may be half written: stop serving rather than diverge from the store
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = core.NewShutdownError(fmt.Sprintf("rolling back %s %s: %v (after %v)", collection, rec.ID, rbErr, err))
		}
	}()

	updatedAt := rec.UpdatedAt.UTC()
	res, err := tx.ExecContext(ctx, tx.Rebind(updateRecordQuery), string(rec.Body), updatedAt, collection, rec.ID)
	if err != nil {
		return errors.Wrapf(err, "updating %s %s", collection, rec.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting updated rows")
	}
	if n == 0 {
		if _, err = tx.ExecContext(ctx, tx.Rebind(insertRecordQuery), collection, rec.ID, string(rec.Body), updatedAt); err != nil {
			return errors.Wrapf(err, "inserting %s %s", collection, rec.ID)
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

// DeleteRecord is a no-op for unknown records.
func (s *RecordStore) DeleteRecord(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(deleteRecordQuery), collection, id); err != nil {
		return errors.Wrapf(err, "deleting %s %s", collection, id)
	}
	return nil
}
