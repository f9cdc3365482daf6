package filter

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
	MaxPage         = 1_000_000
)

type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Pages    int `json:"pages"`
}

// Paginate slices rows into 1-based pages. Out-of-range pages are empty.
func Paginate[T any](rows []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	total := len(rows)
	pages := (total + pageSize - 1) / pageSize
	p := Page[T]{Items: []T{}, Total: total, Page: page, PageSize: pageSize, Pages: pages}
	if page > pages {
		return p
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	p.Items = rows[start:end]
	return p
}
