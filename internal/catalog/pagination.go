package catalog

// Page is a slice of items plus the paging arithmetic.
type Page[T any] struct {
	Items      []T
	TotalCount int
	Page       int
	PerPage    int
	TotalPages int
}

// Paginate returns page number page (1-based) of items. A page past the
// end is empty, not an error. Items is never nil.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultItemsPerPage
	}
	if page < 1 {
		page = 1
	}
	total := len(items)
	p := Page[T]{
		Items:      []T{},
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: (total + perPage - 1) / perPage,
	}

	start := (page - 1) * perPage
	if start >= total {
		return p
	}
	end := min(start+perPage, total)
	p.Items = items[start:end]
	return p
}
