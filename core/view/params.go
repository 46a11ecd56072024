package view

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Reserved query parameters; any other parameter is read as a filter predicate.
const (
	SearchParam   = "search"
	OrderingParam = "ordering"
	PageParam     = "page"
	PageSizeParam = "page_size"
)

// ParsePage reads a page number. Malformed input becomes page 1 and a positive number too
// large for an int becomes the largest page; Paginate clamps the rest.
func ParsePage(s string) int {
	s = strings.TrimSpace(s)
	page, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(s, "-") {
		return math.MaxInt
	}
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// ParsePageSize reads a page size. Malformed input becomes DefaultPageSize.
func ParsePageSize(s string) int {
	size, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultPageSize
	}
	return NormalizePageSize(size)
}

// ParseParams reads Params from query values. Filter predicates are sorted by field name.
func ParseParams(values url.Values) Params {
	p := Params{
		Search:   strings.TrimSpace(values.Get(SearchParam)),
		Ordering: ParseOrdering(values.Get(OrderingParam)),
		Page:     ParsePage(values.Get(PageParam)),
		PageSize: ParsePageSize(values.Get(PageSizeParam)),
	}
	for field, vals := range values {
		switch field {
		case SearchParam, OrderingParam, PageParam, PageSizeParam:
			continue
		}
		if len(vals) > 0 {
			p.Filters = append(p.Filters, Predicate{Field: field, Value: vals[0]})
		}
	}
	sort.Slice(p.Filters, func(i, j int) bool { return p.Filters[i].Field < p.Filters[j].Field })
	return p
}

// ParsePredicate reads a "field=value" predicate.
func ParsePredicate(s string) (Predicate, bool) {
	field, value, ok := strings.Cut(s, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return Predicate{}, false
	}
	return Predicate{Field: field, Value: strings.TrimSpace(value)}, true
}
