// Package repository defines the persistence contracts. Implementations live
// in subpackages (postgres) and contain no business logic; services own
// access decisions and error translation. Lookups of missing rows return
// sql.ErrNoRows.
package repository

import (
	"errors"

	"docvault/internal/access"
)

// ErrInvalidTransition is returned by VersionRepository.Transition when the
// version exists but is no longer pending scan.
var ErrInvalidTransition = errors.New("version is not pending scan")

// Uniqueness violations on users.
var (
	ErrUsernameTaken = errors.New("username is already taken")
	ErrEmailTaken    = errors.New("email is already in use")
)

// PageQuery holds page/limit pagination parameters. Page is 1-based.
type PageQuery struct {
	Page  int
	Limit int
}

// Offset returns the row offset of the page.
func (p PageQuery) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}

// ListQuery selects documents visible through Filter, optionally narrowed to
// those carrying Tag.
type ListQuery struct {
	Filter access.Filter
	Tag    string
	Page   PageQuery
}

// SearchQuery is a full-text query over filename and tags.
type SearchQuery struct {
	Filter access.Filter
	Text   string
	Page   PageQuery
}
