package shared

// Filter carries common list-query options shared by all repositories
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string // asc or desc
}

// Offset returns the row offset implied by the pagination settings
func (f Filter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Limit returns the page size, defaulting to 50 when unset
func (f Filter) Limit() int {
	if f.PageSize <= 0 {
		return 50
	}
	return f.PageSize
}
