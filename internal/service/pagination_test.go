package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"docvault/internal/config"
	"docvault/internal/repository"
)

func TestNewPaginator(t *testing.T) {
	assert.Equal(t, Paginator{DefaultLimit: 20, MaxLimit: 100}, NewPaginator(config.PaginationConfig{}))
	assert.Equal(t, Paginator{DefaultLimit: 10, MaxLimit: 10}, NewPaginator(config.PaginationConfig{DefaultLimit: 50, MaxLimit: 10}))
}

func TestPaginator_Normalize(t *testing.T) {
	p := Paginator{DefaultLimit: 20, MaxLimit: 100}

	tests := []struct {
		name        string
		page, limit int
		want        repository.PageQuery
		wantOffset  int
	}{
		{"defaults", 0, 0, repository.PageQuery{Page: 1, Limit: 20}, 0},
		{"negative page", -3, 10, repository.PageQuery{Page: 1, Limit: 10}, 0},
		{"limit clamped", 2, 500, repository.PageQuery{Page: 2, Limit: 100}, 100},
		{"huge page capped", math.MaxInt64 / 10, 100, repository.PageQuery{Page: math.MaxInt32/100 + 1, Limit: 100}, math.MaxInt32 / 100 * 100},
		{"max int page", math.MaxInt, 1, repository.PageQuery{Page: math.MaxInt32 + 1, Limit: 1}, math.MaxInt32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Normalize(tt.page, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOffset, got.Offset())
			assert.GreaterOrEqual(t, got.Offset(), 0)
		})
	}
}
