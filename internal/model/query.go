package model

import (
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListParams carries the common search, ordering and pagination inputs.
type ListParams struct {
	Search   string `form:"search"`
	Ordering string `form:"ordering"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// Normalize clamps page and page size to their allowed ranges.
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	p.Search = strings.TrimSpace(p.Search)
}

// Offset is the number of rows skipped before the current page.
func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// ClientFilter selects clients.
type ClientFilter struct {
	ListParams
	Gender Gender `form:"gender"`
}

// ProgramFilter selects programs.
type ProgramFilter struct {
	ListParams
}

// Ordering is a single sort key.
type Ordering struct {
	Field string
	Desc  bool
}

var (
	ClientOrderFields  = []string{"created_at", "first_name", "last_name"}
	ProgramOrderFields = []string{"created_at", "name"}
	DefaultOrdering    = Ordering{Field: "created_at", Desc: true}
)

// ParseOrdering reads "field" or "-field". Fields outside allowed fall back to def.
func ParseOrdering(raw string, allowed []string, def Ordering) Ordering {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	// only the first key of a comma separated list is honoured
	raw = strings.SplitN(raw, ",", 2)[0]

	o := Ordering{Field: raw}
	if strings.HasPrefix(raw, "-") {
		o = Ordering{Field: raw[1:], Desc: true}
	}
	for _, f := range allowed {
		if f == o.Field {
			return o
		}
	}
	return def
}

// Page is one page of results plus the total match count.
type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}

// TotalPages is at least 1 so an empty result still has a first page.
func (p Page[T]) TotalPages() int {
	if p.PageSize < 1 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
