package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	t.Run("strips accents", func(t *testing.T) {
		assert.Equal(t, "ue", Fold("üé"))
		assert.Equal(t, "resume", Fold("résumé"))
		assert.Equal(t, "Sao Paulo", Fold("São Paulo"))
	})

	t.Run("maps letters decomposition misses", func(t *testing.T) {
		assert.Equal(t, "o", Fold("ø"))
		assert.Equal(t, "s", Fold("ß"))
		assert.Equal(t, "oeuvre", Fold("œuvre"))
	})

	t.Run("ascii untouched", func(t *testing.T) {
		assert.Equal(t, "plain text", Fold("plain text"))
	})
}

func TestTokenize(t *testing.T) {
	t.Run("splits on non-word runes", func(t *testing.T) {
		tokens := Tokenize("Hello, world! 42", Options{})
		assert.Equal(t, []string{"hello", "world", "42"}, tokens)
	})

	t.Run("keeps case on request", func(t *testing.T) {
		tokens := Tokenize("Hello World", Options{KeepCase: true})
		assert.Equal(t, []string{"Hello", "World"}, tokens)
	})

	t.Run("drops stop words", func(t *testing.T) {
		tokens := Tokenize("the quick fox", Options{StopWords: map[string]bool{"the": true}})
		assert.Equal(t, []string{"quick", "fox"}, tokens)
	})

	t.Run("applies synonyms", func(t *testing.T) {
		tokens := Tokenize("big cat", Options{Synonyms: map[string]string{"big": "large"}})
		assert.Equal(t, []string{"large", "cat"}, tokens)
	})

	t.Run("caps token count", func(t *testing.T) {
		tokens := Tokenize("a b c d", Options{MaxWords: 2})
		assert.Equal(t, []string{"a", "b"}, tokens)
	})

	t.Run("folds before splitting", func(t *testing.T) {
		tokens := Tokenize("café au lait", Options{Fold: true})
		assert.Equal(t, []string{"cafe", "au", "lait"}, tokens)
	})

	t.Run("underscores stay inside tokens", func(t *testing.T) {
		tokens := Tokenize("snake_case word", Options{})
		assert.Equal(t, []string{"snake_case", "word"}, tokens)
	})
}

func TestNormalize(t *testing.T) {
	t.Run("removes blacklisted patterns", func(t *testing.T) {
		got, err := Normalize("RE: hello world", []string{`RE:`}, " ", Options{})
		require.NoError(t, err)
		assert.Equal(t, "hello world", got)
	})

	t.Run("custom delimiter", func(t *testing.T) {
		got, err := Normalize("Hello World", nil, "_", Options{})
		require.NoError(t, err)
		assert.Equal(t, "hello_world", got)
	})

	t.Run("invalid pattern fails", func(t *testing.T) {
		_, err := Normalize("x", []string{"("}, " ", Options{})
		assert.Error(t, err)
	})
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "sao-paulo-guide", Slug("São Paulo: Guide!"))
	assert.Equal(t, "plain", Slug("plain"))
}

func TestFingerprint(t *testing.T) {
	t.Run("order independent", func(t *testing.T) {
		assert.Equal(t, Fingerprint("world hello"), Fingerprint("hello world"))
	})

	t.Run("sorted unique tokens", func(t *testing.T) {
		assert.Equal(t, "hello_world", Fingerprint("world hello world"))
	})

	t.Run("folding applied", func(t *testing.T) {
		assert.Equal(t, Fingerprint("cafe"), Fingerprint("café"))
	})
}

func TestConcatTokens(t *testing.T) {
	assert.Equal(t, "helloworld", ConcatTokens("Hello, World!", Options{}))
}

func TestJaccard(t *testing.T) {
	t.Run("identical texts score one", func(t *testing.T) {
		assert.Equal(t, 1.0, Jaccard("hello world", "world hello", Options{}))
	})

	t.Run("disjoint texts score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Jaccard("alpha", "beta", Options{}))
	})

	t.Run("partial overlap", func(t *testing.T) {
		// {a, b} vs {b, c}: overlap 1, union 3.
		assert.InDelta(t, 1.0/3.0, Jaccard("a b", "b c", Options{}), 1e-9)
	})

	t.Run("empty input scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Jaccard("", "hello", Options{}))
	})
}

func TestIsSafeEncoding(t *testing.T) {
	assert.True(t, IsSafeEncoding("abc_123"))
	assert.False(t, IsSafeEncoding("abc-123"))
	assert.False(t, IsSafeEncoding("héllo"))
	assert.False(t, IsSafeEncoding(""))
}

func TestCleanHTML(t *testing.T) {
	t.Run("strips tags", func(t *testing.T) {
		assert.Equal(t, "hello world", CleanHTML("<p>hello <b>world</b></p>"))
	})

	t.Run("drops script bodies", func(t *testing.T) {
		got := CleanHTML(`<div>text<script>alert(1)</script></div>`)
		assert.Equal(t, "text", got)
	})

	t.Run("plain text passes through", func(t *testing.T) {
		assert.Equal(t, "no tags here", CleanHTML("no tags here"))
	})
}
