package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params holds page-based pagination parameters extracted from a request.
type Params struct {
	Page    int
	PerPage int
}

// FromContext extracts pagination parameters from the echo context.
// Pages are 1-based; out-of-range values fall back to defaults.
func FromContext(c echo.Context) Params {
	return FromContextDefault(c, DefaultPerPage)
}

// FromContextDefault is FromContext with a caller-supplied default page size.
func FromContextDefault(c echo.Context, defaultPerPage int) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}

	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	return Params{Page: page, PerPage: perPage}
}

// Offset returns the row offset for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// TotalPages returns the page count for total rows via ceiling division.
func (p Params) TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + p.PerPage - 1) / p.PerPage
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Page < p.TotalPages(total)
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Page > 1
}

// Response wraps a paginated API response.
type Response struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	TotalPages int         `json:"total_pages"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: p.TotalPages(total),
	}
}
