package pagination

import (
	"net/url"
	"strconv"
)

// MaxPerPage is the largest page the catalog endpoints serve.
const MaxPerPage = 100

// Params addresses one page of a listing. Pages start at 1.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultParams returns the first page of 20 items.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: 20}
}

// New clamps page and perPage into the accepted range.
func New(page, perPage int) Params {
	p := DefaultParams()
	if page > 0 {
		p.Page = page
	}
	if perPage > 0 {
		p.PerPage = min(perPage, MaxPerPage)
	}
	return p
}

// Offset is the number of items before the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Next returns the following page.
func (p Params) Next() Params {
	return Params{Page: p.Page + 1, PerPage: p.PerPage}
}

// Encode sets page and per_page on q.
func (p Params) Encode(q url.Values) {
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("per_page", strconv.Itoa(p.PerPage))
}

// Result is the paginated list envelope.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewResult builds the envelope for one page of a listing of totalCount items.
func NewResult[T any](data []T, totalCount int, p Params) Result[T] {
	totalPages := totalCount / p.PerPage
	if totalCount%p.PerPage > 0 {
		totalPages++
	}
	if data == nil {
		data = []T{}
	}
	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
	}
}
