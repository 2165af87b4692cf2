package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maryam-tariqq/DSA-Project/internal/docstore"
	"github.com/maryam-tariqq/DSA-Project/internal/index"
	"github.com/maryam-tariqq/DSA-Project/internal/search"
	"github.com/maryam-tariqq/DSA-Project/pkg/config"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.IndexConfig{
		DataDir:           t.TempDir(),
		BarrelMaxBytes:    1 << 20,
		ReadRetryAttempts: 2,
		ReadTimeout:       5 * time.Second,
	}
	ix, err := index.Build(cfg, nil, []docstore.Document{
		{ID: "p0", Title: "neural network training"},
		{ID: "p1", Title: "deep learning network"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })

	searchCfg := config.Default().Search
	engine := search.New(ix, searchCfg, nil, nil, nil)
	return New(config.ServerConfig{Port: 0, ShutdownTimeout: time.Second}, engine, ix, nil, nil)
}

func doRequest(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/search?q=network", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp struct {
		Query   string          `json:"query"`
		Mode    string          `json:"mode"`
		Results []search.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "network", resp.Query)
	assert.Equal(t, "any", resp.Mode)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "p0", resp.Results[0].ExternalID)
}

func TestSearchEndpointValidation(t *testing.T) {
	srv := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/search?q=network&limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/search?q=network&mode=fuzzy", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAutocompleteEndpoint(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/autocomplete?prefix=ne", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Prefix      string   `json:"prefix"`
		Completions []string `json:"completions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{"neural", "network"}, resp.Completions)
}

func TestAddDocumentEndpoint(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/documents",
		`{"id":"p2","title":"quantum computing","abstract":"qubits"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		DocID uint32 `json:"doc_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint32(2), resp.DocID)

	// Immediately searchable.
	res := doRequest(t, srv, http.MethodGet, "/api/search?q=quantum", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"p2"`)
}

func TestAddDocumentEndpointErrors(t *testing.T) {
	srv := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/documents", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/documents", `{"id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no indexable fields")

	rec = doRequest(t, srv, http.MethodPost, "/api/documents", `{"id":"p0","title":"copy"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "duplicate external id")
}

func TestUnknownRoute(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
