package view

import (
	"strings"

	"golang.org/x/text/cases"
)

// Search keeps the records where query is found, case-insensitively, in the text of any
// searchable field. List fields are matched element by element.
// A blank query returns records unchanged. Order is preserved.
func Search[T any](records []T, query string, s Schema[T]) []T {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}

	folder := cases.Fold() // not safe for concurrent use
	needle := folder.String(query)

	fields := make([]Field[T], 0, len(s.Searchable))
	for _, name := range s.Searchable {
		if f, ok := s.field(name); ok {
			fields = append(fields, f)
		}
	}

	found := make([]T, 0, len(records))
	for _, rec := range records {
		if containsAny(fields, rec, needle, folder) {
			found = append(found, rec)
		}
	}
	return found
}

func containsAny[T any](fields []Field[T], rec T, needle string, folder cases.Caser) bool {
	for _, f := range fields {
		for _, text := range texts(f.Value(rec)) {
			if strings.Contains(folder.String(text), needle) {
				return true
			}
		}
	}
	return false
}
