package view

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is the window of records selected for display.
type Page[T any] struct {
	Items       []T `json:"items"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
}

// Offset is the index of the first item of the page in the full collection.
func (p Page[T]) Offset() int {
	return (p.CurrentPage - 1) * p.PageSize
}

// Paginate returns records[(page-1)*size : page*size] after normalizing its arguments:
// a page size below 1 becomes DefaultPageSize, above MaxPageSize becomes MaxPageSize, and
// page is clamped to [1, TotalPages]. Empty records give no items and zero pages.
func Paginate[T any](records []T, page, pageSize int) Page[T] {
	pageSize = NormalizePageSize(pageSize)

	total := len(records)
	totalPages := (total + pageSize - 1) / pageSize
	page = min(max(page, 1), max(totalPages, 1))

	lo := min((page-1)*pageSize, total)
	hi := min(lo+pageSize, total)
	items := make([]T, 0, hi-lo)
	items = append(items, records[lo:hi]...)

	return Page[T]{
		Items:       items,
		TotalItems:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
	}
}

func NormalizePageSize(pageSize int) int {
	switch {
	case pageSize < 1:
		return DefaultPageSize
	case pageSize > MaxPageSize:
		return MaxPageSize
	}
	return pageSize
}
