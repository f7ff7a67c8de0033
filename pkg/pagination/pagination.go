// Package pagination handles optional limit/offset paging on list
// endpoints. The portal returns complete lists by default; paging only
// kicks in when a client asks for it.
package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// MaxLimit caps an explicit page size.
const MaxLimit = 200

// Params holds paging parameters extracted from a request. A zero Limit
// means no paging.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts paging parameters from the echo context. Absent or
// invalid values leave the listing unpaginated.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Enabled reports whether the caller asked for paging.
func (p Params) Enabled() bool { return p.Limit > 0 }

// SQL returns the LIMIT/OFFSET clause, or an empty string when paging is
// disabled.
func (p Params) SQL() string {
	if !p.Enabled() {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

// HasNext reports whether more results exist past the current page.
func (p Params) HasNext(total int) bool {
	return p.Enabled() && p.Offset+p.Limit < total
}
