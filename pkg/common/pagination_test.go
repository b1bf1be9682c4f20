package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractListParams_Defaults(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v2/songs", nil)

	params := ExtractListParams(req)

	assert.Equal(t, DefaultPageSize, params.PageSize)
	assert.Equal(t, NavFirst, params.Nav)
	assert.Equal(t, "default", params.SessionID)
	assert.False(t, params.Refresh)
}

func TestExtractListParams_ReadsQuery(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v2/songs?page_size=50&sort=title&order=desc&nav=next&refresh=true&session=tab-1", nil)

	params := ExtractListParams(req)

	assert.Equal(t, 50, params.PageSize)
	assert.Equal(t, "title", params.Sort)
	assert.Equal(t, "desc", params.Order)
	assert.Equal(t, NavNext, params.Nav)
	assert.True(t, params.Refresh)
	assert.Equal(t, "tab-1", params.SessionID)
}

func TestExtractListParams_SessionHeaderWinsOverQuery(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v2/songs?session=tab-query", nil)
	req.Header.Set("X-Session-ID", "tab-header")

	assert.Equal(t, "tab-header", ExtractListParams(req).SessionID)
}

func TestExtractListParams_ClampsPageSize(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v2/songs?page_size=5000", nil)
	assert.Equal(t, MaxPageSize(), ExtractListParams(req).PageSize)

	req = httptest.NewRequest("GET", "/api/v2/songs?page_size=-3", nil)
	assert.Equal(t, DefaultPageSize, ExtractListParams(req).PageSize)

	req = httptest.NewRequest("GET", "/api/v2/songs?page_size=abc", nil)
	assert.Equal(t, DefaultPageSize, ExtractListParams(req).PageSize)
}

func TestExtractListParams_UnknownNavFallsBackToFirst(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v2/songs?nav=page-7", nil)
	assert.Equal(t, NavFirst, ExtractListParams(req).Nav)
}

func TestSetMaxPageSize(t *testing.T) {
	defer SetMaxPageSize(DefaultMaxPageSize)

	SetMaxPageSize(10)
	req := httptest.NewRequest("GET", "/api/v2/songs?page_size=50", nil)
	assert.Equal(t, 10, ExtractListParams(req).PageSize)

	// Non-positive caps are ignored.
	SetMaxPageSize(0)
	assert.Equal(t, 10, MaxPageSize())
}
