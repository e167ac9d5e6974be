package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/cql2pgjson"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := cql2pgjson.ParseDBSchema([]byte(`{"tables": [{"tableName": "users", "ginIndex": [{"fieldName": "name"}]}]}`))
	require.NoError(t, err)
	tr, err := cql2pgjson.NewWithFields([]string{"jsonb"},
		cql2pgjson.WithTable("users"),
		cql2pgjson.WithDBSchema(db),
	)
	require.NoError(t, err)
	return New(tr, WithCORSOrigins("https://example.org")).Handler()
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTranslate(t *testing.T) {
	h := newServer(t)

	rec := post(t, h, `{"query": "name==abc sortBy name"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp TranslateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "lower(f_unaccent(jsonb->>'name')) LIKE lower(f_unaccent('abc'))", resp.Where)
	assert.Equal(t, "lower(f_unaccent(jsonb->>'name'))", resp.OrderBy)
	assert.Equal(t,
		"select * from users where lower(f_unaccent(jsonb->>'name')) LIKE lower(f_unaccent('abc')) order by lower(f_unaccent(jsonb->>'name'))",
		resp.SQL)
	assert.Empty(t, resp.Advisories)
}

func TestTranslateAdvisories(t *testing.T) {
	h := newServer(t)

	rec := post(t, h, `{"query": "name=abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TranslateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Advisories, 1)
	assert.Equal(t, cql2pgjson.StrategyFullText, resp.Advisories[0].Strategy)
	assert.Equal(t, "name", resp.Advisories[0].Field)
}

func TestTranslateErrors(t *testing.T) {
	h := newServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{name: "malformed body", body: `{`, status: http.StatusBadRequest, kind: "request"},
		{name: "unknown field", body: `{"q": "a=b"}`, status: http.StatusBadRequest, kind: "request"},
		{name: "empty query", body: `{"query": ""}`, status: http.StatusBadRequest, kind: "request"},
		{name: "syntax", body: `{"query": "(a=b"}`, status: http.StatusBadRequest, kind: "syntax"},
		{name: "unsupported", body: `{"query": "a=b prox c=d"}`, status: http.StatusBadRequest, kind: "unsupported"},
		{name: "validation", body: `{"query": "a within b"}`, status: http.StatusBadRequest, kind: "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHealth(t *testing.T) {
	h := newServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestCORSPreflight(t *testing.T) {
	h := newServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/translate", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	h := newServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/translate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
