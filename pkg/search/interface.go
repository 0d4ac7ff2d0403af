package search

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrNotFound reports a missing document or index. Callers that soften
// absence into a sentinel value check for it with errors.Is.
var ErrNotFound = errors.New("not found")

// Script is a parameterized update expression executed engine-side.
// Values travel in Params, never spliced into Source, so a compiled
// script can be reused safely across calls.
type Script struct {
	Source string         `json:"source"`
	Lang   string         `json:"lang"`
	Params map[string]any `json:"params"`
}

// Hit is a single search match.
type Hit struct {
	ID     string
	Score  float64
	Source map[string]any
}

// Result is a parsed search response.
type Result struct {
	Total        int
	Hits         []Hit
	Aggregations json.RawMessage
}

// ScrollPage is one page of a server-side cursor. An empty Hits slice
// means the cursor is exhausted.
type ScrollPage struct {
	ScrollID string
	Total    int
	Hits     []Hit
}

// BulkItem is a single document in a bulk write.
type BulkItem struct {
	ID  string
	Doc map[string]any
}

// Engine defines the capability surface the document store needs from a
// full-text search engine. Query and settings bodies are engine-native
// structured objects passed through opaquely.
type Engine interface {
	// IndexExists reports whether the index exists.
	IndexExists(ctx context.Context, index string) (bool, error)

	// CreateIndex creates the index with optional settings/mappings.
	CreateIndex(ctx context.Context, index string, settings map[string]any) error

	// DeleteIndex removes the index. Deleting a missing index is not an error.
	DeleteIndex(ctx context.Context, index string) error

	// RefreshIndex makes recent writes visible to subsequent reads.
	RefreshIndex(ctx context.Context, index string) error

	// GetDoc fetches a document source by id. Returns ErrNotFound on a miss.
	GetDoc(ctx context.Context, index, id string) (map[string]any, error)

	// MultiGet fetches documents positionally aligned with ids, with nil
	// slots for misses. Returns ErrNotFound only when the index is missing.
	MultiGet(ctx context.Context, index string, ids []string) ([]map[string]any, error)

	// IndexDoc writes a single document under the given id.
	IndexDoc(ctx context.Context, index, id string, doc map[string]any) error

	// DeleteDoc removes a single document by id.
	DeleteDoc(ctx context.Context, index, id string) error

	// BulkWrite indexes items in one bulk request and returns the number
	// written. Any transport failure or per-item rejection surfaces as an
	// error covering the whole batch.
	BulkWrite(ctx context.Context, index string, items []BulkItem) (int, error)

	// BulkRaw submits an engine-native bulk body (NDJSON) unchanged.
	BulkRaw(ctx context.Context, index string, body []byte) (json.RawMessage, error)

	// UpdateDoc applies a script to one document.
	UpdateDoc(ctx context.Context, index, id string, script Script) error

	// UpdateByQuery applies a script to every document matching query and
	// returns the updated count.
	UpdateByQuery(ctx context.Context, index string, script Script, query map[string]any) (int, error)

	// Search runs a query body and returns exact totals, hits and raw
	// aggregations.
	Search(ctx context.Context, index string, body map[string]any) (*Result, error)

	// OpenScroll runs the first page of a scrolled search, returning the
	// cursor handle alongside the page.
	OpenScroll(ctx context.Context, index string, body map[string]any) (*ScrollPage, error)

	// AdvanceScroll fetches the next page for an open cursor.
	AdvanceScroll(ctx context.Context, scrollID string) (*ScrollPage, error)

	// Count returns the exact number of documents matching query; a nil
	// query counts the whole index.
	Count(ctx context.Context, index string, query map[string]any) (int, error)
}
