package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := Config{Addresses: []string{"https://localhost:9200"}}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing addresses", func(t *testing.T) {
		cfg := Config{}
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid request timeout", func(t *testing.T) {
		cfg := Config{
			Addresses:      []string{"https://localhost:9200"},
			RequestTimeout: "ten minutes",
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid scroll ttl", func(t *testing.T) {
		cfg := Config{
			Addresses: []string{"https://localhost:9200"},
			ScrollTTL: "2 hours",
		}
		assert.Error(t, cfg.Validate())
	})
}

func TestConfigDurations(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		cfg := Config{Addresses: []string{"https://localhost:9200"}}
		assert.Equal(t, DefaultRequestTimeout, cfg.requestTimeout())
		assert.Equal(t, DefaultScrollTTL, cfg.scrollTTL())
	})

	t.Run("parsed when set", func(t *testing.T) {
		cfg := Config{
			Addresses:      []string{"https://localhost:9200"},
			RequestTimeout: "30s",
			ScrollTTL:      "15m",
		}
		assert.Equal(t, 30*time.Second, cfg.requestTimeout())
		assert.Equal(t, 15*time.Minute, cfg.scrollTTL())
	})

	t.Run("non-positive falls back to defaults", func(t *testing.T) {
		cfg := Config{
			Addresses:      []string{"https://localhost:9200"},
			RequestTimeout: "0s",
			ScrollTTL:      "-1h",
		}
		assert.Equal(t, DefaultRequestTimeout, cfg.requestTimeout())
		assert.Equal(t, DefaultScrollTTL, cfg.scrollTTL())
	})
}
