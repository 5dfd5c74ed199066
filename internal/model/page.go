package model

import "math"

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
	// MaxPage keeps the row offset within a signed 32-bit range.
	MaxPage = math.MaxInt32 / MaxPerPage
)

// Page is a 1-based page request.
type Page struct {
	Number  int
	PerPage int
}

// NewPage clamps page and per_page to sane values.
func NewPage(number, perPage int) Page {
	if number < 1 {
		number = 1
	}
	if number > MaxPage {
		number = MaxPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Page{Number: number, PerPage: perPage}
}

func (p Page) Offset() uint { return uint((p.Number - 1) * p.PerPage) }
func (p Page) Limit() uint  { return uint(p.PerPage) }

// Pages returns the page count for total rows.
func (p Page) Pages(total int) int {
	if total == 0 {
		return 0
	}
	return (total + p.PerPage - 1) / p.PerPage
}
