package view

import (
	"slices"
	"time"
)

// IndexOf returns the position of the record with the given id, or -1.
func IndexOf[T any](records []T, id string, s Schema[T]) int {
	return slices.IndexFunc(records, func(rec T) bool { return s.ID(rec) == id })
}

// Find returns the record with the given id.
func Find[T any](records []T, id string, s Schema[T]) (T, bool) {
	if i := IndexOf(records, id, s); i >= 0 {
		return records[i], true
	}
	var zero T
	return zero, false
}

// Transition returns a new collection where the record with the given id has its status
// replaced and its update time set to at; every other record is carried over unchanged.
// When id is unknown (or the kind has no status) the input is returned as is, with false.
func Transition[T any](records []T, id, status string, at time.Time, s Schema[T]) ([]T, bool) {
	if s.WithStatus == nil {
		return records, false
	}
	i := IndexOf(records, id, s)
	if i < 0 {
		return records, false
	}
	next := slices.Clone(records)
	next[i] = s.WithStatus(records[i], status, at)
	return next, true
}

// Upsert returns a new collection where rec replaces the record with the same id,
// or is appended when there is none.
func Upsert[T any](records []T, rec T, s Schema[T]) []T {
	next := slices.Clone(records)
	if i := IndexOf(records, s.ID(rec), s); i >= 0 {
		next[i] = rec
		return next
	}
	return append(next, rec)
}

// Remove returns a new collection without the record with the given id.
// When id is unknown the input is returned as is, with false.
func Remove[T any](records []T, id string, s Schema[T]) ([]T, bool) {
	i := IndexOf(records, id, s)
	if i < 0 {
		return records, false
	}
	next := make([]T, 0, len(records)-1)
	next = append(next, records[:i]...)
	return append(next, records[i+1:]...), true
}
