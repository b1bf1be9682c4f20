// Package common holds the HTTP helpers shared by all handlers: response
// envelopes and list query parameter extraction.
package common

import (
	"net/http"
	"strconv"
	"sync/atomic"
)

const (
	DefaultPageSize    = 20
	DefaultMaxPageSize = 100
)

// maxPageSize is runtime-tunable so operators can cap heavy list requests
// without a redeploy.
var maxPageSize atomic.Int64

func init() {
	maxPageSize.Store(DefaultMaxPageSize)
}

// MaxPageSize returns the active page size cap.
func MaxPageSize() int {
	return int(maxPageSize.Load())
}

// SetMaxPageSize changes the page size cap. Non-positive values are ignored.
func SetMaxPageSize(n int) {
	if n > 0 {
		maxPageSize.Store(int64(n))
	}
}

// Nav values accepted by list endpoints. Cursor pagination only moves to
// adjacent pages, so there is no arbitrary page jump.
const (
	NavFirst = "first"
	NavNext  = "next"
	NavPrev  = "prev"
)

// ListParams are the query parameters of a paginated list endpoint.
// SessionID scopes the server-side pagination state so two browser tabs
// never share cursors.
type ListParams struct {
	PageSize  int
	Sort      string
	Order     string
	Nav       string
	Refresh   bool
	SessionID string
}

// ExtractListParams reads the list parameters, clamping out-of-range values
// to their defaults.
func ExtractListParams(r *http.Request) ListParams {
	params := ListParams{
		PageSize: DefaultPageSize,
		Nav:      NavFirst,
	}

	if size := r.URL.Query().Get("page_size"); size != "" {
		if s, err := strconv.Atoi(size); err == nil && s > 0 {
			if limit := MaxPageSize(); s > limit {
				s = limit
			}
			params.PageSize = s
		}
	}

	params.Sort = r.URL.Query().Get("sort")
	params.Order = r.URL.Query().Get("order")
	if nav := r.URL.Query().Get("nav"); nav == NavNext || nav == NavPrev {
		params.Nav = nav
	}
	params.Refresh = r.URL.Query().Get("refresh") == "true"

	params.SessionID = r.Header.Get("X-Session-ID")
	if params.SessionID == "" {
		params.SessionID = r.URL.Query().Get("session")
	}
	if params.SessionID == "" {
		params.SessionID = "default"
	}
	return params
}
