package view

import (
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Direction of an ordering.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// fieldMaxSim is the minimal similarity for an unknown sort key to be read as a known field.
const fieldMaxSim = .7

type Ordering struct {
	Field     string
	Direction Direction
}

func (ord Ordering) String() string {
	if ord.Direction == Descending {
		return "-" + ord.Field
	}
	return ord.Field
}

// ParseOrdering reads a comma separated list of fields; a leading "-" means descending.
func ParseOrdering(s string) []Ordering {
	var orderings []Ordering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		dir := Ascending
		if strings.HasPrefix(field, "-") {
			dir = Descending
			field = strings.TrimSpace(field[1:]) // drop "-"
		} else if strings.HasPrefix(field, "+") {
			field = strings.TrimSpace(field[1:])
		}
		if field != "" {
			orderings = append(orderings, Ordering{Field: field, Direction: dir})
		}
	}
	return orderings
}

// Sort returns the records ordered by key. The sort is stable: records comparing equal keep
// their input order, in both directions. The input is never mutated.
func Sort[T any](records []T, key string, dir Direction, s Schema[T]) []T {
	return SortBy(records, s, Ordering{Field: key, Direction: dir})
}

// SortBy is Sort over several keys, the first one being the most significant.
// Unknown keys are read as the closest field name, or dropped; when no key remains the
// schema's default ordering applies, and without one the input order is kept.
func SortBy[T any](records []T, s Schema[T], orderings ...Ordering) []T {
	type key struct {
		field Field[T]
		desc  bool
	}
	resolve := func(ords []Ordering) []key {
		keys := make([]key, 0, len(ords))
		for _, ord := range ords {
			if name := s.ResolveField(ord.Field); name != "" {
				keys = append(keys, key{field: s.Fields[name], desc: ord.Direction == Descending})
			}
		}
		return keys
	}

	sorted := slices.Clone(records)
	keys := resolve(orderings)
	if len(keys) == 0 {
		keys = resolve(s.DefaultOrdering)
	}
	if len(keys) == 0 {
		return sorted
	}

	slices.SortStableFunc(sorted, func(a, b T) int {
		for _, k := range keys {
			c := compareValues(k.field.Kind, k.field.Value(a), k.field.Value(b))
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return sorted
}

// ResolveField returns name if it is a schema field, else the most similar field name
// (case-insensitive), else "".
func (s Schema[T]) ResolveField(name string) string {
	name = strings.TrimSpace(name)
	if s.HasField(name) {
		return name
	}
	if name == "" {
		return ""
	}

	lname := strings.ToLower(name)
	var (
		best      string
		bestRatio float64
	)
	for _, candidate := range s.FieldNames() {
		lcand := strings.ToLower(candidate)
		if lcand == lname {
			return candidate
		}
		ratio := difflib.NewMatcher(strings.Split(lname, ""), strings.Split(lcand, "")).Ratio()
		if ratio > bestRatio {
			best, bestRatio = candidate, ratio
		}
	}
	if bestRatio >= fieldMaxSim {
		return best
	}
	return ""
}
