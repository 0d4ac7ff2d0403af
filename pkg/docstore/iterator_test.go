package docstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/docstore/pkg/search"
)

// makeHits builds n hits with sequential string ids starting at from.
func makeHits(from, n int) []search.Hit {
	hits := make([]search.Hit, n)
	for i := range hits {
		id := fmt.Sprintf("%d", from+i)
		hits[i] = search.Hit{ID: id, Source: map[string]any{"id": id}}
	}
	return hits
}

func TestIterator(t *testing.T) {
	ctx := context.Background()

	t.Run("zero matches yield one nil sentinel", func(t *testing.T) {
		store, engine := newTestStore(t)
		engine.SetScrollPages(0)

		it := store.Iterate(ctx, 10)
		require.True(t, it.Next())
		assert.Nil(t, it.Document())
		assert.False(t, it.Next())
		require.NoError(t, it.Err())
		assert.Equal(t, 0, it.Total())
	})

	t.Run("yields every document exactly once", func(t *testing.T) {
		store, engine := newTestStore(t)
		engine.SetScrollPages(5, makeHits(0, 2), makeHits(2, 2), makeHits(4, 1))

		it := store.Iterate(ctx, 2)
		var ids []string
		for it.Next() {
			ids = append(ids, it.Document().ID())
		}
		require.NoError(t, it.Err())
		assert.Equal(t, []string{"0", "1", "2", "3", "4"}, ids)
		assert.Equal(t, 5, it.Total())
	})

	t.Run("stops on the first empty page", func(t *testing.T) {
		store, engine := newTestStore(t)
		engine.SetScrollPages(2, makeHits(0, 2))

		it := store.Iterate(ctx, 2)
		n := 0
		for it.Next() {
			n++
		}
		require.NoError(t, it.Err())
		assert.Equal(t, 2, n)
	})

	t.Run("max size checked at page boundaries", func(t *testing.T) {
		store, engine := newTestStore(t)
		engine.SetScrollPages(10, makeHits(0, 3), makeHits(3, 3), makeHits(6, 3))

		it := store.IterateQuery(ctx, "*", IterateOptions{PageSize: 3, MaxSize: 4})
		n := 0
		for it.Next() {
			n++
		}
		require.NoError(t, it.Err())
		// The bound may overshoot by less than one page, never undershoot.
		assert.GreaterOrEqual(t, n, 4)
		assert.Less(t, n, 4+3)
		// The crossing page is still yielded in full.
		assert.Equal(t, 6, n)
	})

	t.Run("query becomes a query_string clause", func(t *testing.T) {
		store, engine := newTestStore(t)
		engine.SetScrollPages(0)

		it := store.IterateQuery(ctx, "golang", IterateOptions{})
		it.Next()

		require.Len(t, engine.ScrollBodies, 1)
		query := engine.ScrollBodies[0]["query"].(map[string]any)
		assert.Contains(t, query, "query_string")
	})

	t.Run("open failure surfaces through Err", func(t *testing.T) {
		store, engine := newTestStore(t)
		engine.OpenScrollFunc = func(ctx context.Context, index string, body map[string]any) (*search.ScrollPage, error) {
			return nil, errors.New("connection refused")
		}

		it := store.Iterate(ctx, 10)
		assert.False(t, it.Next())
		assert.Error(t, it.Err())
	})

	t.Run("advance failure surfaces through Err", func(t *testing.T) {
		store, engine := newTestStore(t)
		engine.SetScrollPages(4, makeHits(0, 2))
		engine.AdvanceScrollFunc = func(ctx context.Context, scrollID string) (*search.ScrollPage, error) {
			return nil, errors.New("cursor expired")
		}

		it := store.Iterate(ctx, 2)
		n := 0
		for it.Next() {
			n++
		}
		assert.Equal(t, 2, n)
		assert.Error(t, it.Err())
	})
}

func TestIDIterator(t *testing.T) {
	ctx := context.Background()

	t.Run("zero matches yield one nil page", func(t *testing.T) {
		store, engine := newTestStore(t)
		engine.SetScrollPages(0)

		it := store.ScrollIDs(ctx, nil, 10, 0)
		require.True(t, it.Next())
		assert.Nil(t, it.Page())
		assert.False(t, it.Next())
		require.NoError(t, it.Err())
	})

	t.Run("yields pages of ids", func(t *testing.T) {
		store, engine := newTestStore(t)
		engine.SetScrollPages(3, makeHits(0, 2), makeHits(2, 1))

		it := store.ScrollIDs(ctx, nil, 2, 0)
		var pages [][]string
		for it.Next() {
			pages = append(pages, it.Page())
		}
		require.NoError(t, it.Err())
		require.Len(t, pages, 2)
		assert.Equal(t, []string{"0", "1"}, pages[0])
		assert.Equal(t, []string{"2"}, pages[1])
	})

	t.Run("page crossing max size is dropped", func(t *testing.T) {
		store, engine := newTestStore(t)
		engine.SetScrollPages(6, makeHits(0, 2), makeHits(2, 2), makeHits(4, 2))

		it := store.ScrollIDs(ctx, nil, 2, 3)
		var ids []string
		for it.Next() {
			ids = append(ids, it.Page()...)
		}
		require.NoError(t, it.Err())
		// The first page is always yielded; the second would cross the
		// bound and is dropped whole.
		assert.Equal(t, []string{"0", "1"}, ids)
	})

	t.Run("overwrites the body's page size", func(t *testing.T) {
		store, engine := newTestStore(t)
		engine.SetScrollPages(0)

		body := map[string]any{"query": map[string]any{"match_all": map[string]any{}}, "size": 999}
		it := store.ScrollIDs(ctx, body, 25, 0)
		it.Next()

		require.Len(t, engine.ScrollBodies, 1)
		assert.Equal(t, 25, engine.ScrollBodies[0]["size"])
	})

	t.Run("falls back to engine id when source has none", func(t *testing.T) {
		store, engine := newTestStore(t)
		engine.SetScrollPages(1, []search.Hit{{ID: "engine-1", Source: map[string]any{"title": "x"}}})

		it := store.ScrollIDs(ctx, nil, 10, 0)
		require.True(t, it.Next())
		assert.Equal(t, []string{"engine-1"}, it.Page())
	})
}
