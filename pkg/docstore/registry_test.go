package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/docstore/pkg/search"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the index on first open", func(t *testing.T) {
		engine := search.NewMockEngine()
		registry := NewRegistry(engine, RegistryConfig{})

		store, err := registry.Open(ctx, "articles")
		require.NoError(t, err)
		assert.Equal(t, "articles", store.Name())
		assert.Equal(t, []string{"articles"}, engine.CreatedIndices)
	})

	t.Run("repeated opens share one store", func(t *testing.T) {
		engine := search.NewMockEngine()
		registry := NewRegistry(engine, RegistryConfig{})

		first, err := registry.Open(ctx, "articles")
		require.NoError(t, err)
		second, err := registry.Open(ctx, "articles")
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, []string{"articles"}, engine.CreatedIndices)
	})

	t.Run("forget forces index creation again", func(t *testing.T) {
		engine := search.NewMockEngine()
		registry := NewRegistry(engine, RegistryConfig{})

		store, err := registry.Open(ctx, "articles")
		require.NoError(t, err)
		require.NoError(t, store.Drop(ctx))
		registry.Forget("articles")

		_, err = registry.Open(ctx, "articles")
		require.NoError(t, err)
		assert.Equal(t, []string{"articles", "articles"}, engine.CreatedIndices)
	})

	t.Run("settings apply to created indexes", func(t *testing.T) {
		engine := search.NewMockEngine()
		var got map[string]any
		engine.CreateIndexFunc = func(ctx context.Context, index string, settings map[string]any) error {
			got = settings
			return nil
		}

		settings := map[string]any{"number_of_shards": 1}
		registry := NewRegistry(engine, RegistryConfig{Settings: settings})

		_, err := registry.Open(ctx, "articles")
		require.NoError(t, err)
		assert.Equal(t, settings, got)
	})
}
