// Package service holds helpers shared by the domain services.
package service

import (
	"time"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/pkg/errors"
)

// Invalidator is notified after every committed write so derived data
// such as cached reports can be dropped.
type Invalidator interface {
	Invalidate()
}

// Nop is an Invalidator that does nothing.
type Nop struct{}

func (Nop) Invalidate() {}

// Clock returns the current time.
type Clock func() time.Time

// Now returns c() or time.Now when c is nil.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// PageOf checks that the requested page exists and assembles the result.
// The first page always exists, even when nothing matched.
func PageOf[T any](items []T, total int, p model.ListParams) (model.Page[T], error) {
	page := model.Page[T]{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize}
	if p.Page > page.TotalPages() {
		return model.Page[T]{}, errors.NotFound("page", nil)
	}
	return page, nil
}
