package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateNum(t *testing.T) {
	day := time.Date(2024, time.June, 3, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, 20240603, DateNum(day))
}

func TestFormat(t *testing.T) {
	day := time.Date(2024, time.June, 3, 15, 4, 5, 0, time.UTC)

	t.Run("default layout", func(t *testing.T) {
		assert.Equal(t, "2024-06-03T15:04:05", Format(day, ""))
	})

	t.Run("custom layout", func(t *testing.T) {
		assert.Equal(t, "2024-06-03", Format(day, "2006-01-02"))
	})
}

func TestParse(t *testing.T) {
	t.Run("default layout", func(t *testing.T) {
		got, err := Parse("2024-06-03T15:04:05", "")
		require.NoError(t, err)
		assert.Equal(t, 2024, got.Year())
		assert.Equal(t, 15, got.Hour())
	})

	t.Run("invalid input fails", func(t *testing.T) {
		_, err := Parse("yesterday", "")
		assert.Error(t, err)
	})
}

func TestConvert(t *testing.T) {
	got, err := Convert("2024-06-03T15:04:05", "", "2006/01/02")
	require.NoError(t, err)
	assert.Equal(t, "2024/06/03", got)

	_, err = Convert("bad", "", "2006")
	assert.Error(t, err)
}
