package view

// State tells the rendering side which affordance to show for a result.
type State string

const (
	StateReady   State = "ready"
	StateEmpty   State = "empty"    // the collection has no records at all
	StateNoMatch State = "no_match" // records exist but none survive search & filters
)

// Params are the three axes of user intent plus the page window.
type Params struct {
	Search   string
	Filters  []Predicate
	Ordering []Ordering
	Page     int
	PageSize int
}

type Result[T any] struct {
	Page[T]
	State State `json:"state"`
}

// Query runs search, filters, ordering and pagination over records.
func Query[T any](records []T, p Params, s Schema[T]) Result[T] {
	found := Search(records, p.Search, s)
	found = Filter(found, p.Filters, s)
	found = SortBy(found, s, p.Ordering...)

	res := Result[T]{Page: Paginate(found, p.Page, p.PageSize), State: StateReady}
	switch {
	case len(records) == 0:
		res.State = StateEmpty
	case len(found) == 0:
		res.State = StateNoMatch
	}
	return res
}
