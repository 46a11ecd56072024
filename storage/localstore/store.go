// Package localstore keeps each collection in its own JSON file, like browser local storage
// keeps one value per key. Files are replaced atomically on every write.
package localstore

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
)

var validName = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

type entry struct {
	ID        string          `json:"id"`
	Body      json.RawMessage `json:"body"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Store struct {
	dir string
	mu  sync.Mutex
}

var _ core.RecordStore = (*Store)(nil)

// Open returns a store writing under dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(collection string) (string, error) {
	if !validName.MatchString(collection) {
		return "", errors.Errorf("invalid collection name %q", collection)
	}
	return filepath.Join(s.dir, collection+".json"), nil
}

func (s *Store) read(collection string) ([]entry, string, error) {
	path, err := s.path(collection)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, path, nil
		}
		return nil, path, errors.Wrapf(err, "reading %s", path)
	}
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, path, errors.Wrapf(err, "decoding %s", path)
	}
	return entries, path, nil
}

func (s *Store) write(path string, entries []entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding entries")
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

func (s *Store) ListRecords(_ context.Context, collection string) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := s.read(collection)
	if err != nil {
		return nil, err
	}
	records := make([]core.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, core.Record{ID: e.ID, Body: []byte(e.Body), UpdatedAt: e.UpdatedAt})
	}
	return records, nil
}

func (s *Store) PutRecord(_ context.Context, collection string, rec core.Record) error {
	if !json.Valid(rec.Body) {
		return errors.Errorf("%s %s: body is not valid JSON", collection, rec.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, path, err := s.read(collection)
	if err != nil {
		return err
	}
	e := entry{ID: rec.ID, Body: append(json.RawMessage(nil), rec.Body...), UpdatedAt: rec.UpdatedAt.UTC()}
	replaced := false
	for i := range entries {
		if entries[i].ID == rec.ID {
			entries[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, e)
	}
	return s.write(path, entries)
}

func (s *Store) DeleteRecord(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, path, err := s.read(collection)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == id {
			return s.write(path, append(entries[:i], entries[i+1:]...))
		}
	}
	return nil
}
