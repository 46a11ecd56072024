// Package fixtures holds the seed records of every collection as JSONC (JSON with comments
// and trailing commas).
package fixtures

import (
	"context"
	"embed"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	"github.com/tailscale/hujson"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/alert"
	"github.com/trezcool/portal/core/collection"
	"github.com/trezcool/portal/core/conversation"
	"github.com/trezcool/portal/core/meeting"
	"github.com/trezcool/portal/core/resource"
	"github.com/trezcool/portal/core/submission"
	"github.com/trezcool/portal/core/ticket"
	"github.com/trezcool/portal/core/view"
)

//go:embed data/*.jsonc
var data embed.FS

// Load decodes the fixture file of the named collection.
func Load[T any](name string) ([]T, error) {
	raw, err := data.ReadFile("data/" + name + ".jsonc")
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s fixtures", name)
	}
	return Decode[T](raw)
}

// Decode parses JSONC into records.
func Decode[T any](raw []byte) ([]T, error) {
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, errors.Wrap(err, "standardizing JSONC")
	}
	var records []T
	if err := json.Unmarshal(std, &records); err != nil {
		return nil, errors.Wrap(err, "decoding records")
	}
	return records, nil
}

// Source serves the fixtures of a collection; it is a collection.Source.
type Source[T any] struct {
	name string
}

func NewSource[T any](schema view.Schema[T]) Source[T] {
	return Source[T]{name: schema.Name}
}

func (s Source[T]) Fetch(context.Context) ([]T, error) {
	return Load[T](s.name)
}

type seeder func(ctx context.Context, store core.RecordStore) (int, error)

func seed[T any](schema view.Schema[T]) seeder {
	return func(ctx context.Context, store core.RecordStore) (int, error) {
		records, err := Load[T](schema.Name)
		if err != nil {
			return 0, err
		}
		return collection.NewStoreAdapter(store, schema).SeedIfEmpty(ctx, records)
	}
}

var seeders = map[string]seeder{
	alert.Schema.Name:        seed(alert.Schema),
	ticket.Schema.Name:       seed(ticket.Schema),
	meeting.Schema.Name:      seed(meeting.Schema),
	submission.Schema.Name:   seed(submission.Schema),
	resource.Schema.Name:     seed(resource.Schema),
	conversation.Schema.Name: seed(conversation.Schema),
}

// Kinds returns the sorted names of the seedable collections.
func Kinds() []string {
	kinds := make([]string, 0, len(seeders))
	for k := range seeders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Seed saves the fixtures of the given collections (all when none are given) into store.
// Collections that already hold records are left alone. It returns the number of records saved per collection.
func Seed(ctx context.Context, store core.RecordStore, kinds ...string) (map[string]int, error) {
	if len(kinds) == 0 {
		kinds = Kinds()
	}
	counts := make(map[string]int, len(kinds))
	for _, kind := range kinds {
		s, ok := seeders[kind]
		if !ok {
			return counts, errors.Errorf("unknown collection %q", kind)
		}
		n, err := s(ctx, store)
		if err != nil {
			return counts, errors.Wrapf(err, "seeding %s", kind)
		}
		counts[kind] = n
	}
	return counts, nil
}
