// Package pagination turns page and limit query values into a bounded window.
package pagination

import "github.com/gofiber/fiber/v2"

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit far away from integer overflow
	MaxPage = 10000
)

// Window is a validated page request
type Window struct {
	Page  int
	Limit int
}

// Meta describes where a window sits in the full result set
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// FromQuery reads ?page and ?limit; unparsable values fall back to defaults
func FromQuery(c *fiber.Ctx) Window {
	return NewWindow(c.QueryInt("page", 1), c.QueryInt("limit", DefaultLimit))
}

// NewWindow clamps page into [1, MaxPage] and limit into [1, MaxLimit]
func NewWindow(page, limit int) Window {
	switch {
	case page < 1:
		page = 1
	case page > MaxPage:
		page = MaxPage
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return Window{Page: page, Limit: limit}
}

// Offset is the number of rows skipped before this window
func (w Window) Offset() int {
	return (w.Page - 1) * w.Limit
}

// Describe builds the metadata for this window given the total row count
func (w Window) Describe(total int64) *Meta {
	pages := int((total + int64(w.Limit) - 1) / int64(w.Limit))
	return &Meta{
		Page:       w.Page,
		Limit:      w.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    w.Page < pages,
		HasPrev:    w.Page > 1,
	}
}
