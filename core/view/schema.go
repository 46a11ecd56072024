// Package view computes the visible slice of a record collection: search, filters, ordering and
// pagination over in-memory records, plus whole-record status transitions.
//
// Every function is pure: inputs are never mutated and a new slice is returned whenever the
// result differs from the input. The record shape is described once per record kind by a Schema.
package view

import (
	"sort"
	"time"
)

// Kind is the semantic type of a field; it selects how values are matched and compared.
type Kind int

const (
	String Kind = iota
	Number
	Time // time.Time, or ISO-8601 strings; compared as epoch milliseconds
	Bool
	List // []string; searched and matched per element
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Time:
		return "time"
	case Bool:
		return "bool"
	case List:
		return "list"
	}
	return "unknown"
}

// Field reads one named attribute of a record.
type Field[T any] struct {
	Kind  Kind
	Value func(T) any
}

// Schema is the field-accessor map of a record kind.
type Schema[T any] struct {
	Name            string
	Fields          map[string]Field[T]
	Searchable      []string   // names of fields matched by Search
	DefaultOrdering []Ordering // used when no (valid) ordering is requested
	ID              func(T) string
	// WithStatus returns a copy of rec whose status is replaced and whose update time is set to at.
	// nil for record kinds without a status.
	WithStatus func(rec T, status string, at time.Time) T
}

func (s Schema[T]) field(name string) (Field[T], bool) {
	f, ok := s.Fields[name]
	if !ok || f.Value == nil {
		return Field[T]{}, false
	}
	return f, true
}

// FieldNames returns the sorted names of the schema fields.
func (s Schema[T]) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasField reports whether name is a field of the schema.
func (s Schema[T]) HasField(name string) bool {
	_, ok := s.field(name)
	return ok
}
