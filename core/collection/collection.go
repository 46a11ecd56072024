// Package collection provides the state container owning one record collection: it loads the
// records from a Source, answers view queries over the loaded snapshot and applies mutations
// optimistically, handing whole records to a Saver and rolling back when saving fails.
package collection

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/lifecycle"
	"github.com/trezcool/portal/core/view"
)

const DefaultLoadTimeout = 5 * time.Second

// ErrStaleLoad is returned to loads that were superseded by a Reset while in flight.
// Their records are discarded.
var ErrStaleLoad = errors.New("load superseded")

// ErrDuplicateID is returned by Insert when the id is already taken.
var ErrDuplicateID = errors.New("duplicate id")

type (
	// Source supplies the initial records. A failure must be returned as an error,
	// never as an empty result.
	Source[T any] interface {
		Fetch(ctx context.Context) ([]T, error)
	}

	// Saver persists whole records keyed by their ID.
	Saver[T any] interface {
		Save(ctx context.Context, rec T) error
		Delete(ctx context.Context, id string) error
	}

	LoadState string

	Options[T any] struct {
		LoadTimeout time.Duration
		Logger      core.Logger
		Now         func() time.Time
		// Machine validates status transitions; StatusOf reads the current status of a record.
		Machine  *lifecycle.Machine
		StatusOf func(T) string
	}
)

const (
	StateIdle    LoadState = "idle"
	StateLoading LoadState = "loading"
	StateReady   LoadState = "ready"
	StateFailed  LoadState = "failed"
)

// Collection is safe for concurrent use. Its records slice is never modified in place:
// every mutation swaps in a new slice, so snapshots handed out stay valid.
type Collection[T any] struct {
	schema view.Schema[T]
	source Source[T]
	saver  Saver[T]
	opts   Options[T]

	mu         sync.RWMutex
	records    []T
	state      LoadState
	loadErr    error
	generation uint64
	seqs       map[string]uint64 // per-record mutation sequence, guards rollbacks

	loads     singleflight.Group
	mutations singleflight.Group
}

// New returns an idle collection. saver may be nil for read-only or in-memory collections.
func New[T any](schema view.Schema[T], source Source[T], saver Saver[T], opts Options[T]) *Collection[T] {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Collection[T]{
		schema: schema,
		source: source,
		saver:  saver,
		opts:   opts,
		state:  StateIdle,
		seqs:   make(map[string]uint64),
	}
}

func (c *Collection[T]) Name() string { return c.schema.Name }

func (c *Collection[T]) Schema() view.Schema[T] { return c.schema }

// State returns the load state and, when it is StateFailed, the load error.
func (c *Collection[T]) State() (LoadState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.loadErr
}

// Load fetches the records from the source, bounded by the load timeout.
// Concurrent calls share a single fetch. The fetch does not belong to any caller: a caller
// whose ctx ends stops waiting for it and gets ctx's error, but the fetch carries on and its
// outcome is recorded for everyone else.
func (c *Collection[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	gen := c.generation
	if c.state != StateReady {
		c.state = StateLoading
	}
	c.mu.Unlock()

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.loads.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		return nil, c.load(fetchCtx, gen)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "waiting for %s", c.schema.Name)
	}
}

func (c *Collection[T]) load(ctx context.Context, gen uint64) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.LoadTimeout)
	defer cancel()

	records, err := c.source.Fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return ErrStaleLoad
	}
	if err != nil {
		c.state = StateFailed
		c.loadErr = core.NewLoadError(c.schema.Name, err)
		c.logWarn(fmt.Sprintf("loading %s failed", c.schema.Name), err)
		return c.loadErr
	}
	c.records = append(make([]T, 0, len(records)), records...)
	c.state = StateReady
	c.loadErr = nil
	return nil
}

// Reset drops the records and marks any load in flight as stale.
func (c *Collection[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.records = nil
	c.state = StateIdle
	c.loadErr = nil
	c.seqs = make(map[string]uint64)
}

// ensureLoaded loads an idle collection and reports a failed one. It does not retry failures.
func (c *Collection[T]) ensureLoaded(ctx context.Context) error {
	state, err := c.State()
	switch state {
	case StateReady:
		return nil
	case StateFailed:
		return err
	}
	return c.Load(ctx)
}

// Snapshot returns the current records.
func (c *Collection[T]) Snapshot(ctx context.Context) ([]T, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records, nil
}

// Query runs the view engine over the current records.
func (c *Collection[T]) Query(ctx context.Context, p view.Params) (view.Result[T], error) {
	records, err := c.Snapshot(ctx)
	if err != nil {
		return view.Result[T]{}, err
	}
	return view.Query(records, p, c.schema), nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	records, err := c.Snapshot(ctx)
	if err != nil {
		return zero, err
	}
	rec, ok := view.Find(records, id, c.schema)
	if !ok {
		return zero, core.ErrNotFound
	}
	return rec, nil
}

// Transition sets the status of the record with the given id and saves it.
// Unknown ids give core.ErrNotFound; transitions refused by the lifecycle give a
// core.ValidationError. Identical transitions in flight are only applied once.
func (c *Collection[T]) Transition(ctx context.Context, id, status string) (T, error) {
	var zero T
	if c.schema.WithStatus == nil {
		return zero, errors.Errorf("%s records have no status", c.schema.Name)
	}
	if err := c.ensureLoaded(ctx); err != nil {
		return zero, err
	}

	res, err, _ := c.mutations.Do(id+"\x00"+status, func() (interface{}, error) {
		return c.transition(ctx, id, status)
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

func (c *Collection[T]) transition(ctx context.Context, id, status string) (T, error) {
	var zero T

	c.mu.Lock()
	prev, ok := view.Find(c.records, id, c.schema)
	if !ok {
		c.mu.Unlock()
		return zero, core.ErrNotFound
	}
	if c.opts.Machine != nil && c.opts.StatusOf != nil {
		if err := c.opts.Machine.Check(c.opts.StatusOf(prev), status); err != nil {
			c.mu.Unlock()
			return zero, core.NewValidationError(err, core.FieldError{Field: "status", Error: errors.Cause(err).Error()})
		}
	}
	next, _ := view.Transition(c.records, id, status, c.opts.Now(), c.schema)
	updated, _ := view.Find(next, id, c.schema)
	c.records = next
	seq := c.bump(id)
	c.mu.Unlock()

	if err := c.save(ctx, updated); err != nil {
		c.rollback(id, seq, func(records []T) []T { return view.Upsert(records, prev, c.schema) })
		return zero, errors.Wrapf(err, "saving %s %s", c.schema.Name, id)
	}
	return updated, nil
}

// Add inserts rec, or replaces the record with the same ID, and saves it.
func (c *Collection[T]) Add(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := c.ensureLoaded(ctx); err != nil {
		return zero, err
	}
	id := c.schema.ID(rec)

	c.mu.Lock()
	prev, existed := view.Find(c.records, id, c.schema)
	c.records = view.Upsert(c.records, rec, c.schema)
	seq := c.bump(id)
	c.mu.Unlock()

	if err := c.save(ctx, rec); err != nil {
		c.rollback(id, seq, func(records []T) []T {
			if existed {
				return view.Upsert(records, prev, c.schema)
			}
			records, _ = view.Remove(records, id, c.schema)
			return records
		})
		return zero, errors.Wrapf(err, "saving %s %s", c.schema.Name, id)
	}
	return rec, nil
}

// Insert adds rec unless a record with the same ID exists, in which case it returns ErrDuplicateID.
func (c *Collection[T]) Insert(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := c.ensureLoaded(ctx); err != nil {
		return zero, err
	}
	id := c.schema.ID(rec)

	c.mu.Lock()
	if view.IndexOf(c.records, id, c.schema) >= 0 {
		c.mu.Unlock()
		return zero, ErrDuplicateID
	}
	c.records = view.Upsert(c.records, rec, c.schema)
	seq := c.bump(id)
	c.mu.Unlock()

	if err := c.save(ctx, rec); err != nil {
		c.rollback(id, seq, func(records []T) []T {
			records, _ = view.Remove(records, id, c.schema)
			return records
		})
		return zero, errors.Wrapf(err, "saving %s %s", c.schema.Name, id)
	}
	return rec, nil
}

// Update replaces the record with the given id by change(record) and saves it.
// change runs under the collection lock, so concurrent updates of a record never
// overwrite each other; it must not block. An error from change aborts the update.
func (c *Collection[T]) Update(ctx context.Context, id string, change func(T) (T, error)) (T, error) {
	var zero T
	if err := c.ensureLoaded(ctx); err != nil {
		return zero, err
	}

	c.mu.Lock()
	prev, ok := view.Find(c.records, id, c.schema)
	if !ok {
		c.mu.Unlock()
		return zero, core.ErrNotFound
	}
	next, err := change(prev)
	if err != nil {
		c.mu.Unlock()
		return zero, err
	}
	if c.schema.ID(next) != id {
		c.mu.Unlock()
		return zero, errors.Errorf("%s %s: update changed the record id", c.schema.Name, id)
	}
	c.records = view.Upsert(c.records, next, c.schema)
	seq := c.bump(id)
	c.mu.Unlock()

	if err := c.save(ctx, next); err != nil {
		c.rollback(id, seq, func(records []T) []T { return view.Upsert(records, prev, c.schema) })
		return zero, errors.Wrapf(err, "saving %s %s", c.schema.Name, id)
	}
	return next, nil
}

// Delete removes the record with the given id, restoring it at its position if the
// deletion cannot be persisted.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	idx := view.IndexOf(c.records, id, c.schema)
	if idx < 0 {
		c.mu.Unlock()
		return core.ErrNotFound
	}
	prev := c.records[idx]
	c.records, _ = view.Remove(c.records, id, c.schema)
	seq := c.bump(id)
	c.mu.Unlock()

	if c.saver == nil {
		return nil
	}
	if err := c.saver.Delete(ctx, id); err != nil {
		c.rollback(id, seq, func(records []T) []T { return insertAt(records, idx, prev) })
		return errors.Wrapf(err, "deleting %s %s", c.schema.Name, id)
	}
	return nil
}

func (c *Collection[T]) save(ctx context.Context, rec T) error {
	if c.saver == nil {
		return nil
	}
	return c.saver.Save(ctx, rec)
}

// bump must be called while holding c.mu.
func (c *Collection[T]) bump(id string) uint64 {
	c.seqs[id]++
	return c.seqs[id]
}

// rollback undoes a failed mutation unless the record was mutated again since.
func (c *Collection[T]) rollback(id string, seq uint64, undo func([]T) []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seqs[id] != seq {
		c.logWarn(fmt.Sprintf("skipped rollback of %s %s: mutated since", c.schema.Name, id))
		return
	}
	c.records = undo(c.records)
	c.logWarn(fmt.Sprintf("rolled back %s %s", c.schema.Name, id))
}

func (c *Collection[T]) logWarn(msg string, args ...interface{}) {
	if c.opts.Logger != nil {
		c.opts.Logger.Warn(msg, args...)
	}
}

func insertAt[T any](records []T, idx int, rec T) []T {
	idx = min(idx, len(records))
	next := make([]T, 0, len(records)+1)
	next = append(next, records[:idx]...)
	next = append(next, rec)
	return append(next, records[idx:]...)
}
