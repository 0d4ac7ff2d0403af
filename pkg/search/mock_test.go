package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEngine_DefaultBehavior(t *testing.T) {
	ctx := context.Background()
	m := NewMockEngine()

	// Index lifecycle
	exists, err := m.IndexExists(ctx, "items")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, m.CreateIndex(ctx, "items", map[string]any{"settings": map[string]any{}}))
	exists, err = m.IndexExists(ctx, "items")
	require.NoError(t, err)
	assert.True(t, exists)

	// Document roundtrip
	require.NoError(t, m.IndexDoc(ctx, "items", "1", map[string]any{"id": "1", "title": "first"}))
	doc, err := m.GetDoc(ctx, "items", "1")
	require.NoError(t, err)
	assert.Equal(t, "first", doc["title"])

	_, err = m.GetDoc(ctx, "items", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Positional multi-get with a nil slot for the missing id
	docs, err := m.MultiGet(ctx, "items", []string{"1", "missing"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.NotNil(t, docs[0])
	assert.Nil(t, docs[1])

	// Bulk stores every item and records the batch
	n, err := m.BulkWrite(ctx, "items", []BulkItem{
		{ID: "2", Doc: map[string]any{"id": "2"}},
		{ID: "3", Doc: map[string]any{"id": "3"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, m.BulkBatches, 1)

	total, err := m.Count(ctx, "items", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	// Delete drops the index and its documents
	require.NoError(t, m.DeleteIndex(ctx, "items"))
	exists, err = m.IndexExists(ctx, "items")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMockEngine_ScriptedScroll(t *testing.T) {
	ctx := context.Background()
	m := NewMockEngine()

	m.SetScrollPages(3,
		[]Hit{{ID: "1"}, {ID: "2"}},
		[]Hit{{ID: "3"}},
	)

	page, err := m.OpenScroll(ctx, "items", map[string]any{"size": 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Hits, 2)
	assert.Equal(t, "mock-scroll", page.ScrollID)

	page, err = m.AdvanceScroll(ctx, page.ScrollID)
	require.NoError(t, err)
	assert.Len(t, page.Hits, 1)

	// Script exhausted, pages come back empty
	page, err = m.AdvanceScroll(ctx, page.ScrollID)
	require.NoError(t, err)
	assert.Empty(t, page.Hits)

	assert.Len(t, m.ScrollBodies, 1)
	assert.Equal(t, []string{"mock-scroll", "mock-scroll"}, m.ScrollCursors)
}

func TestMockEngine_Overrides(t *testing.T) {
	ctx := context.Background()
	m := NewMockEngine()

	boom := errors.New("boom")
	m.BulkWriteFunc = func(ctx context.Context, index string, items []BulkItem) (int, error) {
		return 0, boom
	}

	_, err := m.BulkWrite(ctx, "items", []BulkItem{{ID: "1", Doc: map[string]any{"id": "1"}}})
	assert.ErrorIs(t, err, boom)
	// The failed batch is still recorded
	assert.Len(t, m.BulkBatches, 1)

	m.SetSearchResult(&Result{Total: 42, Hits: []Hit{{ID: "9"}}})
	res, err := m.Search(ctx, "items", map[string]any{"query": map[string]any{"match_all": map[string]any{}}})
	require.NoError(t, err)
	assert.Equal(t, 42, res.Total)
	require.Len(t, m.SearchBodies, 1)
	assert.Contains(t, m.SearchBodies[0], "query")
}
