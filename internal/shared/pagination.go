package shared

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is applied when a listing does not specify one.
	DefaultLimit = 50
	// MaxLimit caps the page size of any listing.
	MaxLimit = 500
)

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

// PageFromQuery reads limit/offset query parameters, falling back to defaults on
// missing or malformed values.
func PageFromQuery(q url.Values) Page {
	page := Page{Limit: DefaultLimit}
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			page.Limit = parsed
		}
	}
	if o := q.Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			page.Offset = parsed
		}
	}
	if page.Limit > MaxLimit {
		page.Limit = MaxLimit
	}
	return page
}
