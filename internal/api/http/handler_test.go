package http

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/docstore/pkg/docstore"
	"github.com/Zereker/docstore/pkg/mq"
	"github.com/Zereker/docstore/pkg/search"
)

func newTestMux(t *testing.T) (*http.ServeMux, *search.MockEngine, *mq.InMemoryQueue) {
	t.Helper()

	engine := search.NewMockEngine()
	registry := docstore.NewRegistry(engine, docstore.RegistryConfig{})
	queue := mq.NewInMemoryQueue()

	mux := http.NewServeMux()
	NewHandler(registry, queue, "documents").RegisterRoutes(mux)
	return mux, engine, queue
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestInsertEndpoint(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		mux, engine, _ := newTestMux(t)

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/indexes/articles/documents", `{"id":"1","title":"first"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, []string{"1"}, engine.IndexedIDs)
		// The ensure-index path ran lazily for the new index name.
		assert.Equal(t, []string{"articles"}, engine.CreatedIndices)
	})

	t.Run("missing id is a client error", func(t *testing.T) {
		mux, _, _ := newTestMux(t)

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/indexes/articles/documents", `{"title":"no id"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, decodeResponse(t, rec).Success)
	})

	t.Run("malformed body", func(t *testing.T) {
		mux, _, _ := newTestMux(t)

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/indexes/articles/documents", `not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBulkEndpoint(t *testing.T) {
	mux, engine, _ := newTestMux(t)

	body := `{"documents":[{"id":"1"},{"id":"2"},{"id":"3"}],"batch_size":2}`
	rec := doJSON(t, mux, http.MethodPost, "/api/v1/indexes/articles/documents:bulk", body)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, engine.BulkBatches, 2)

	resp := decodeResponse(t, rec)
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result docstore.BulkResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
}

func TestGetEndpoint(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mux, engine, _ := newTestMux(t)
		engine.SeedDocs("articles", map[string]map[string]any{
			"1": {"id": "1", "title": "first"},
		})

		rec := doJSON(t, mux, http.MethodGet, "/api/v1/indexes/articles/documents/1", "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeResponse(t, rec)
		doc := resp.Data.(map[string]any)
		assert.Equal(t, "first", doc["title"])
	})

	t.Run("absent is 404", func(t *testing.T) {
		mux, _, _ := newTestMux(t)

		rec := doJSON(t, mux, http.MethodGet, "/api/v1/indexes/articles/documents/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetManyEndpoint(t *testing.T) {
	mux, engine, _ := newTestMux(t)
	engine.SeedDocs("articles", map[string]map[string]any{
		"1": {"id": "1"},
	})

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/indexes/articles/documents:mget", `{"ids":["1","2"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	docs := resp.Data.([]any)
	require.Len(t, docs, 2)
	assert.NotNil(t, docs[0])
	assert.Nil(t, docs[1])
}

func TestUpdateEndpoint(t *testing.T) {
	t.Run("applies the scripted update", func(t *testing.T) {
		mux, engine, _ := newTestMux(t)

		body := `{"fields":{"title":"new"},"scope":"full","strict":true}`
		rec := doJSON(t, mux, http.MethodPost, "/api/v1/indexes/articles/documents/1/update", body)
		require.Equal(t, http.StatusOK, rec.Code)

		require.Len(t, engine.UpdateScripts, 1)
		assert.Equal(t, "painless", engine.UpdateScripts[0].Lang)
		assert.Equal(t, map[string]any{"title": "new"}, engine.UpdateScripts[0].Params)
		assert.Equal(t, []string{"1"}, engine.UpdatedIDs)
	})

	t.Run("unknown scope rejected", func(t *testing.T) {
		mux, _, _ := newTestMux(t)

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/indexes/articles/documents/1/update", `{"scope":"sideways"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateManyEndpoint(t *testing.T) {
	t.Run("ids become a terms query", func(t *testing.T) {
		mux, engine, _ := newTestMux(t)

		body := `{"ids":["1","2"],"fields":{"flag":true}}`
		rec := doJSON(t, mux, http.MethodPost, "/api/v1/indexes/articles/update", body)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, engine.UpdateQueries, 1)
		assert.Contains(t, engine.UpdateQueries[0], "bool")
	})

	t.Run("no selector rejected", func(t *testing.T) {
		mux, _, _ := newTestMux(t)

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/indexes/articles/update", `{"fields":{"x":1}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSearchEndpoint(t *testing.T) {
	t.Run("GET with query params", func(t *testing.T) {
		mux, engine, _ := newTestMux(t)
		engine.SetSearchResult(&search.Result{
			Total: 1,
			Hits:  []search.Hit{{ID: "1", Source: map[string]any{"id": "1"}}},
		})

		rec := doJSON(t, mux, http.MethodGet, "/api/v1/indexes/articles/search?q=golang&from=0&size=10", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := engine.SearchBodies[0]
		assert.Equal(t, 10, body["size"])
		assert.Contains(t, body["query"], "query_string")
	})

	t.Run("POST with body", func(t *testing.T) {
		mux, engine, _ := newTestMux(t)

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/indexes/articles/search", `{"q":"*","size":5}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, engine.SearchBodies[0]["query"], "match_all")
	})
}

func TestRawSearchEndpoint(t *testing.T) {
	mux, engine, _ := newTestMux(t)

	body := `{"query":{"term":{"lang":"go"}}}`
	rec := doJSON(t, mux, http.MethodPost, "/api/v1/indexes/articles/search:raw", body)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, engine.SearchBodies, 1)
	assert.Contains(t, engine.SearchBodies[0], "query")
}

func TestFacetsEndpoint(t *testing.T) {
	mux, engine, _ := newTestMux(t)
	engine.SetSearchResult(&search.Result{
		Aggregations: json.RawMessage(`{"lang":{"buckets":[{"key":"go","doc_count":2}]}}`),
	})

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/indexes/articles/facets/lang?sort_by_key=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	aggs := engine.SearchBodies[0]["aggs"].(map[string]any)
	terms := aggs["lang"].(map[string]any)["terms"].(map[string]any)
	assert.Equal(t, map[string]any{"_key": "asc"}, terms["order"])

	resp := decodeResponse(t, rec)
	buckets := resp.Data.([]any)
	require.Len(t, buckets, 1)
}

func TestCountEndpoint(t *testing.T) {
	mux, engine, _ := newTestMux(t)
	engine.SeedDocs("articles", map[string]map[string]any{"1": {"id": "1"}})

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/indexes/articles/count", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	counts := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), counts["count"])
}

func TestExportEndpoint(t *testing.T) {
	t.Run("streams ndjson", func(t *testing.T) {
		mux, engine, _ := newTestMux(t)
		engine.SetScrollPages(2,
			[]search.Hit{{ID: "1", Source: map[string]any{"id": "1"}}},
			[]search.Hit{{ID: "2", Source: map[string]any{"id": "2"}}},
		)

		rec := doJSON(t, mux, http.MethodGet, "/api/v1/indexes/articles/export?page_size=1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

		var lines []string
		scanner := bufio.NewScanner(rec.Body)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		require.Len(t, lines, 2)

		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &doc))
		assert.Equal(t, "1", doc["id"])
	})

	t.Run("empty result exports nothing", func(t *testing.T) {
		mux, engine, _ := newTestMux(t)
		engine.SetScrollPages(0)

		rec := doJSON(t, mux, http.MethodGet, "/api/v1/indexes/articles/export", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, strings.TrimSpace(rec.Body.String()))
	})
}

func TestDropEndpoint(t *testing.T) {
	mux, engine, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodDelete, "/api/v1/indexes/articles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"articles"}, engine.DeletedIndices)

	// Dropping again succeeds: delete is idempotent and the registry
	// recreates the index lazily.
	rec = doJSON(t, mux, http.MethodDelete, "/api/v1/indexes/articles", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIngestEndpoint(t *testing.T) {
	t.Run("queues documents", func(t *testing.T) {
		mux, _, queue := newTestMux(t)

		body := `{"documents":[{"id":"1"},{"id":"2"}]}`
		rec := doJSON(t, mux, http.MethodPost, "/api/v1/ingest", body)
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Len(t, queue.Messages("documents"), 2)
	})

	t.Run("document without id rejected", func(t *testing.T) {
		mux, _, queue := newTestMux(t)

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/ingest", `{"documents":[{"title":"x"}]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, queue.Messages("documents"))
	})

	t.Run("unavailable without a queue", func(t *testing.T) {
		engine := search.NewMockEngine()
		registry := docstore.NewRegistry(engine, docstore.RegistryConfig{})
		mux := http.NewServeMux()
		NewHandler(registry, nil, "documents").RegisterRoutes(mux)

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/ingest", `{"documents":[{"id":"1"}]}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)
}
