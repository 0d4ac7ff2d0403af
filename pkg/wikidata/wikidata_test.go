package wikidata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const instancesResponse = `{
  "results": {
    "bindings": [
      {"item": {"value": "http://www.wikidata.org/entity/Q30"}},
      {"item": {"value": "http://www.wikidata.org/entity/Q142"}}
    ]
  }
}`

func TestSPARQL(t *testing.T) {
	t.Run("sends the query and accept header", func(t *testing.T) {
		var gotQuery, gotAccept string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("query")
			gotAccept = r.Header.Get("Accept")
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL)
		raw, err := client.SPARQL(context.Background(), "SELECT ?item WHERE {}")
		require.NoError(t, err)
		assert.JSONEq(t, "{}", string(raw))
		assert.Equal(t, "SELECT ?item WHERE {}", gotQuery)
		assert.Equal(t, "application/sparql-results+json", gotAccept)
	})

	t.Run("non-200 fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).SPARQL(context.Background(), "x")
		assert.Error(t, err)
	})
}

func TestInstances(t *testing.T) {
	t.Run("parses entities and strips the prefix", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Query().Get("query"), "wdt:P31 wd:Q6256")
			_, _ = w.Write([]byte(instancesResponse))
		}))
		defer srv.Close()

		entities, err := NewClient(srv.URL).Instances(context.Background(), PropertyInstanceOf, ConceptCountry)
		require.NoError(t, err)
		require.Len(t, entities, 2)
		assert.Equal(t, "http://www.wikidata.org/entity/Q30", entities[0].URI)
		assert.Equal(t, "Q30", entities[0].ID)
		assert.Equal(t, "Q142", entities[1].ID)
	})

	t.Run("malformed response fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Instances(context.Background(), PropertyInstanceOf, ConceptCountry)
		assert.Error(t, err)
	})
}
