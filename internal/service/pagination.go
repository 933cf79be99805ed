package service

import (
	"math"

	"docvault/internal/config"
	"docvault/internal/repository"
)

// Pagination is the metadata block of a paginated response.
type Pagination struct {
	Total       int `json:"total"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
}

// Page is the paginated envelope returned by listing endpoints.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Paginator clamps client supplied page parameters.
type Paginator struct {
	DefaultLimit int
	MaxLimit     int
}

// NewPaginator falls back to 20/100 for unset values.
func NewPaginator(cfg config.PaginationConfig) Paginator {
	p := Paginator{DefaultLimit: cfg.DefaultLimit, MaxLimit: cfg.MaxLimit}
	if p.DefaultLimit <= 0 {
		p.DefaultLimit = 20
	}
	if p.MaxLimit <= 0 {
		p.MaxLimit = 100
	}
	if p.DefaultLimit > p.MaxLimit {
		p.DefaultLimit = p.MaxLimit
	}
	return p
}

// maxOffset bounds the row offset a page may reach. Pages past it are
// empty anyway and would otherwise overflow the offset.
const maxOffset = math.MaxInt32

// Normalize returns a 1-based page and a limit within (0, MaxLimit]. The
// page is capped so its offset never exceeds maxOffset.
func (p Paginator) Normalize(page, limit int) repository.PageQuery {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = p.DefaultLimit
	}
	if limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	if limit > 0 {
		if maxPage := maxOffset/limit + 1; page > maxPage {
			page = maxPage
		}
	}
	return repository.PageQuery{Page: page, Limit: limit}
}

func newPage[T any](res *repository.PageResult[T], pq repository.PageQuery) *Page[T] {
	items := res.Items
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if pq.Limit > 0 {
		totalPages = (res.Total + pq.Limit - 1) / pq.Limit
	}
	return &Page[T]{
		Items: items,
		Pagination: Pagination{
			Total:       res.Total,
			TotalPages:  totalPages,
			CurrentPage: pq.Page,
			Limit:       pq.Limit,
		},
	}
}
