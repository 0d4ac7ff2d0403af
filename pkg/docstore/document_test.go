package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentID(t *testing.T) {
	t.Run("string id", func(t *testing.T) {
		assert.Equal(t, "a1", Document{"id": "a1"}.ID())
	})

	t.Run("numeric id", func(t *testing.T) {
		// Engine responses decode numbers as float64.
		assert.Equal(t, "42", Document{"id": float64(42)}.ID())
		assert.Equal(t, "42", Document{"id": 42}.ID())
	})

	t.Run("missing id", func(t *testing.T) {
		assert.Equal(t, "", Document{"title": "x"}.ID())
		assert.Equal(t, "", Document{"id": ""}.ID())
	})
}

func TestDocumentDecode(t *testing.T) {
	type article struct {
		ID       string    `json:"id"`
		Title    string    `json:"title"`
		Views    int       `json:"views"`
		Tags     []string  `json:"tags"`
		Indexed  int64     `json:"indexed"`
		Published time.Time `json:"published"`
	}

	t.Run("weakly typed fields", func(t *testing.T) {
		doc := Document{
			"id":    "a1",
			"title": "first",
			// Numbers arrive as float64 from the engine.
			"views":   float64(7),
			"indexed": float64(1700000000000),
		}

		var a article
		require.NoError(t, doc.Decode(&a))
		assert.Equal(t, "a1", a.ID)
		assert.Equal(t, 7, a.Views)
		assert.Equal(t, int64(1700000000000), a.Indexed)
	})

	t.Run("string slice from any slice", func(t *testing.T) {
		doc := Document{"id": "a1", "tags": []any{"go", "search"}}

		var a article
		require.NoError(t, doc.Decode(&a))
		assert.Equal(t, []string{"go", "search"}, a.Tags)
	})

	t.Run("time from string", func(t *testing.T) {
		doc := Document{"id": "a1", "published": "2024-06-01T10:30:00"}

		var a article
		require.NoError(t, doc.Decode(&a))
		assert.Equal(t, 2024, a.Published.Year())
		assert.Equal(t, time.June, a.Published.Month())
	})

	t.Run("unparseable time fails", func(t *testing.T) {
		doc := Document{"id": "a1", "published": "yesterday"}

		var a article
		assert.Error(t, doc.Decode(&a))
	})
}
