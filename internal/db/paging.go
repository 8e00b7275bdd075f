package db

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// PagingParams define os parâmetros básicos de entrada
type PagingParams struct {
	Page    int
	PerPage int
}

func (p PagingParams) Offset() int {
	if p.Page < 1 {
		p.Page = 1
	}
	return (p.Page - 1) * p.Limit()
}

func (p PagingParams) Limit() int {
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	return min(p.PerPage, MaxPerPage)
}

func (p PagingParams) CurrentPage() int {
	return max(p.Page, 1)
}

// PagedResult encapsula os dados e os metadados da página
type PagedResult[T any] struct {
	Items       []T `json:"items"`
	TotalItems  int `json:"totalItems"`
	CurrentPage int `json:"currentPage"`
	PerPage     int `json:"perPage"`
}

func (p PagedResult[T]) TotalPages() int {
	if p.PerPage == 0 {
		return 0
	}
	return (p.TotalItems + p.PerPage - 1) / p.PerPage
}

func (p PagedResult[T]) HasPrevious() bool {
	return p.CurrentPage > 1
}

func (p PagedResult[T]) HasNext() bool {
	return p.CurrentPage < p.TotalPages()
}
