package view

import "strings"

// All is the predicate value that accepts any field value.
const All = "all"

// Predicate matches one field to one accepted value, or to any value when Value is All.
type Predicate struct {
	Field string
	Value string
}

// IsAll reports whether the predicate accepts every record.
func (p Predicate) IsAll() bool {
	v := strings.TrimSpace(p.Value)
	return v == "" || strings.EqualFold(v, All)
}

// Filter keeps the records that satisfy every predicate (logical AND).
// Predicates set to All and predicates on unknown fields are ignored. Order is preserved.
func Filter[T any](records []T, predicates []Predicate, s Schema[T]) []T {
	type active struct {
		field Field[T]
		value string
	}
	preds := make([]active, 0, len(predicates))
	for _, p := range predicates {
		if p.IsAll() {
			continue
		}
		if f, ok := s.field(p.Field); ok {
			preds = append(preds, active{field: f, value: strings.TrimSpace(p.Value)})
		}
	}

	kept := make([]T, 0, len(records))
	for _, rec := range records {
		ok := true
		for _, p := range preds {
			if !matches(p.field.Kind, p.field.Value(rec), p.value) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, rec)
		}
	}
	return kept
}
