package domain

// PageRequest selects one page of a listing. Values below 1 yield an empty
// page rather than an error.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Valid() bool {
	return p.Page >= 1 && p.PageSize >= 1
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type Page[T any] struct {
	Data        []T
	Total       int64
	TotalPages  int
	CurrentPage int
}

func EmptyPage[T any](current int) Page[T] {
	return Page[T]{Data: []T{}, CurrentPage: current}
}

func NewPage[T any](data []T, total int64, req PageRequest) Page[T] {
	totalPages := int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	return Page[T]{
		Data:        data,
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: req.Page,
	}
}
