package docstore

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/Zereker/docstore/pkg/search"
)

// DefaultPageSize is the result page size used when none is given.
const DefaultPageSize = 100

// QueryOptions tunes a paginated search.
type QueryOptions struct {
	// Sort is an optional engine-native sort clause.
	Sort any

	// From is the offset of the first result.
	From int

	// Size is the page size. Zero or negative means DefaultPageSize.
	Size int
}

// Facet is one bucket of a term aggregation.
type Facet struct {
	Key   any `json:"key"`
	Count int `json:"count"`
}

// FacetOptions tunes a term aggregation.
type FacetOptions struct {
	// Query restricts the aggregation to matching documents. Empty and
	// "*" match everything.
	Query string

	// Size caps the number of buckets. Zero or negative means
	// DefaultPageSize.
	Size int

	// SortByKey orders buckets by ascending key instead of the
	// engine's descending count order.
	SortByKey bool
}

// matchesAll reports whether a free-text query selects the whole index.
func matchesAll(q string) bool {
	q = strings.TrimSpace(q)
	return q == "" || q == "*"
}

// matchQuery builds the query clause for a paginated search, combining
// terms with AND.
func matchQuery(q string) map[string]any {
	if matchesAll(q) {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{
		"query_string": map[string]any{
			"query":            q,
			"default_operator": "AND",
		},
	}
}

// filterQuery is matchQuery without the AND operator, used by cursors,
// facets and counts.
func filterQuery(q string) map[string]any {
	if matchesAll(q) {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{
		"query_string": map[string]any{"query": q},
	}
}

// Query runs a paginated free-text search and returns the exact total
// match count alongside one page of documents. Empty and "*" queries
// match everything.
func (s *Store) Query(ctx context.Context, q string, opts QueryOptions) (int, []Document, error) {
	size := opts.Size
	if size <= 0 {
		size = DefaultPageSize
	}

	body := map[string]any{
		"query":            matchQuery(q),
		"size":             size,
		"from":             opts.From,
		"track_total_hits": true,
	}
	if opts.Sort != nil {
		body["sort"] = opts.Sort
	}

	return s.search(ctx, body)
}

// RawQuery runs an engine-native query body, returning the same total
// and documents shape as Query.
func (s *Store) RawQuery(ctx context.Context, body map[string]any) (int, []Document, error) {
	return s.search(ctx, body)
}

// RawSearch runs an engine-native query body and returns the engine's
// full response: total, scored hits and raw aggregations.
func (s *Store) RawSearch(ctx context.Context, body map[string]any) (*search.Result, error) {
	res, err := s.engine.Search(ctx, s.index, body)
	if err != nil {
		return nil, errors.WithMessage(err, "search failed")
	}
	return res, nil
}

func (s *Store) search(ctx context.Context, body map[string]any) (int, []Document, error) {
	res, err := s.engine.Search(ctx, s.index, body)
	if err != nil {
		return 0, nil, errors.WithMessage(err, "search failed")
	}

	docs := make([]Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		docs = append(docs, Document(hit.Source))
	}
	return res.Total, docs, nil
}

// Facets aggregates the distinct values of one field, returning buckets
// ordered by descending count, or by ascending key when requested.
func (s *Store) Facets(ctx context.Context, field string, opts FacetOptions) ([]Facet, error) {
	size := opts.Size
	if size <= 0 {
		size = DefaultPageSize
	}

	terms := map[string]any{
		"field": field,
		"size":  size,
	}
	if opts.SortByKey {
		terms["order"] = map[string]any{"_key": "asc"}
	}

	body := map[string]any{
		"query": filterQuery(opts.Query),
		"size":  0,
		"aggs": map[string]any{
			field: map[string]any{"terms": terms},
		},
	}

	res, err := s.engine.Search(ctx, s.index, body)
	if err != nil {
		return nil, errors.WithMessagef(err, "facets on %s failed", field)
	}
	return parseFacets(res.Aggregations, field)
}

// parseFacets extracts one field's term buckets from raw aggregations.
func parseFacets(raw json.RawMessage, field string) ([]Facet, error) {
	if len(raw) == 0 {
		return nil, errors.Errorf("no aggregation for field %s", field)
	}

	var aggs map[string]struct {
		Buckets []struct {
			Key      any `json:"key"`
			DocCount int `json:"doc_count"`
		} `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &aggs); err != nil {
		return nil, errors.WithMessage(err, "failed to parse aggregations")
	}

	agg, ok := aggs[field]
	if !ok {
		return nil, errors.Errorf("no aggregation for field %s", field)
	}

	facets := make([]Facet, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		facets = append(facets, Facet{Key: b.Key, Count: b.DocCount})
	}
	return facets, nil
}

// Count returns the number of documents matching the free-text query q.
// Empty and "*" count the whole index.
func (s *Store) Count(ctx context.Context, q string) (int, error) {
	if matchesAll(q) {
		return s.Size(ctx)
	}

	n, err := s.engine.Count(ctx, s.index, filterQuery(q))
	if err != nil {
		return 0, errors.WithMessage(err, "count failed")
	}
	return n, nil
}

// Size returns the total number of documents in the index.
func (s *Store) Size(ctx context.Context) (int, error) {
	n, err := s.engine.Count(ctx, s.index, nil)
	if err != nil {
		return 0, errors.WithMessage(err, "count failed")
	}
	return n, nil
}

// Sample returns up to size documents drawn in random order from those
// matching query. A nil query samples the whole index; a non-positive
// size defaults to 1000.
func (s *Store) Sample(ctx context.Context, query map[string]any, size int) ([]Document, error) {
	if query == nil {
		query = map[string]any{"match_all": map[string]any{}}
	}
	if size <= 0 {
		size = 1000
	}

	body := map[string]any{
		"size": size,
		"query": map[string]any{
			"function_score": map[string]any{
				"random_score": map[string]any{},
				"query":        query,
			},
		},
	}

	_, docs, err := s.search(ctx, body)
	return docs, err
}
