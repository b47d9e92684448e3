package shared

// Filter holds page-based pagination for list queries
type Filter struct {
	Page     int
	PageSize int
}

// DefaultFilter returns the first page of 20
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: 20}
}

// Offset returns the row offset for the filter's page.
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
