// Package pagination windows list results for the REST Index endpoints.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is the window requested with ?limit=&offset=.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit and offset. Missing or malformed values fall back
// to the defaults; limit is capped at MaxLimit.
func FromContext(c echo.Context) Params {
	p := Params{Limit: DefaultLimit}
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		p.Limit = min(n, MaxLimit)
	}
	if n, err := strconv.Atoi(c.QueryParam("offset")); err == nil && n > 0 {
		p.Offset = n
	}
	return p
}

// Response is the envelope of every Index response.
type Response struct {
	Data    any  `json:"data"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// Paginate cuts the window p out of items. Data is never nil, so an empty
// page encodes as [].
func Paginate[T any](items []T, p Params) *Response {
	start := min(p.Offset, len(items))
	end := min(start+p.Limit, len(items))
	page := make([]T, end-start)
	copy(page, items[start:end])
	return &Response{
		Data:    page,
		Total:   len(items),
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: end < len(items),
	}
}
