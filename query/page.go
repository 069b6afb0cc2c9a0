package query

// Page is one page of results together with the totals it was cut from.
type Page[T any] struct {
	CurrentPage  int64
	TotalPages   int64
	TotalItems   int64
	ItemsPerPage int64
	Items        []T
	// Context is free for the caller to carry view state alongside the page.
	Context any
}

// PagedList is the list-shaped form of a page.
type PagedList[T any] struct {
	Items      []T
	PageIndex  int64
	PageSize   int64
	TotalCount int64
}

func (l *PagedList[T]) TotalPages() int64 {
	return TotalPages(l.TotalCount, l.PageSize)
}

// ToPage converts the list into a Page.
func (l *PagedList[T]) ToPage() *Page[T] {
	return &Page[T]{
		CurrentPage:  l.PageIndex,
		TotalPages:   l.TotalPages(),
		TotalItems:   l.TotalCount,
		ItemsPerPage: l.PageSize,
		Items:        l.Items,
	}
}

// TotalPages is ceil(total/perPage), or 0 when perPage is not positive.
func TotalPages(total, perPage int64) int64 {
	if perPage <= 0 {
		return 0
	}
	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	return pages
}
