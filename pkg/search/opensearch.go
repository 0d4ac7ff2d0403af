package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
)

// Package-level singleton instance
var engineInstance *OpenSearch

// Init initializes the OpenSearch engine singleton with config.
func Init(cfg Config) error {
	engine, err := NewOpenSearch(cfg)
	if err != nil {
		return err
	}
	engineInstance = engine
	return nil
}

// NewEngine returns the singleton OpenSearch engine instance.
func NewEngine() *OpenSearch {
	return engineInstance
}

// Close closes the singleton engine connection.
func Close() error {
	if engineInstance == nil {
		return nil
	}
	return engineInstance.Close()
}

// OpenSearch implements Engine against an OpenSearch cluster.
type OpenSearch struct {
	client         *opensearchapi.Client
	requestTimeout time.Duration
	scrollTTL      time.Duration
}

var _ Engine = (*OpenSearch)(nil)

// NewOpenSearch creates a new OpenSearch engine
func NewOpenSearch(cfg Config) (*OpenSearch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	clientCfg := opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: cfg.Addresses,
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: transport,
		},
	}

	client, err := opensearchapi.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch client: %w", err)
	}

	return &OpenSearch{
		client:         client,
		requestTimeout: cfg.requestTimeout(),
		scrollTTL:      cfg.scrollTTL(),
	}, nil
}

// timeoutCtx bounds a single engine request.
func (e *OpenSearch) timeoutCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.requestTimeout)
}

// notFoundResp reports whether a raw engine response is a 404.
func notFoundResp(resp *opensearch.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

// IndexExists reports whether the index exists.
func (e *OpenSearch) IndexExists(ctx context.Context, index string) (bool, error) {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	resp, err := e.client.Indices.Exists(ctx, opensearchapi.IndicesExistsReq{Indices: []string{index}})
	if err != nil {
		if notFoundResp(resp) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check index %s: %w", index, err)
	}
	return resp.StatusCode == http.StatusOK, nil
}

// CreateIndex creates the index with optional settings/mappings.
func (e *OpenSearch) CreateIndex(ctx context.Context, index string, settings map[string]any) error {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	req := opensearchapi.IndicesCreateReq{Index: index}
	if len(settings) > 0 {
		body, err := json.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal index settings: %w", err)
		}
		req.Body = bytes.NewReader(body)
	}

	if _, err := e.client.Indices.Create(ctx, req); err != nil {
		return fmt.Errorf("failed to create index %s: %w", index, err)
	}
	return nil
}

// DeleteIndex removes the index. Missing indices are ignored so the
// operation is idempotent.
func (e *OpenSearch) DeleteIndex(ctx context.Context, index string) error {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	_, err := e.client.Indices.Delete(ctx, opensearchapi.IndicesDeleteReq{
		Indices: []string{index},
		Params:  opensearchapi.IndicesDeleteParams{IgnoreUnavailable: opensearchapi.ToPointer(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to delete index %s: %w", index, err)
	}
	return nil
}

// RefreshIndex makes recent writes visible to subsequent reads.
func (e *OpenSearch) RefreshIndex(ctx context.Context, index string) error {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	if _, err := e.client.Indices.Refresh(ctx, &opensearchapi.IndicesRefreshReq{Indices: []string{index}}); err != nil {
		return fmt.Errorf("failed to refresh index %s: %w", index, err)
	}
	return nil
}

// GetDoc fetches a document source by id. Returns ErrNotFound when the
// document or the index does not exist.
func (e *OpenSearch) GetDoc(ctx context.Context, index, id string) (map[string]any, error) {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	resp, err := e.client.Document.Get(ctx, opensearchapi.DocumentGetReq{
		Index:      index,
		DocumentID: id,
	})
	if err != nil {
		if resp != nil && notFoundResp(resp.Inspect().Response) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	if !resp.Found {
		return nil, ErrNotFound
	}

	var doc map[string]any
	if err := json.Unmarshal(resp.Source, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
	}
	return doc, nil
}

// MultiGet fetches documents by id, positionally aligned with ids. Missing
// documents leave a nil slot. Returns ErrNotFound when the index itself is
// missing.
func (e *OpenSearch) MultiGet(ctx context.Context, index string, ids []string) ([]map[string]any, error) {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	body, err := json.Marshal(map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mget body: %w", err)
	}

	resp, err := e.client.MGet(ctx, opensearchapi.MGetReq{
		Index: index,
		Body:  bytes.NewReader(body),
	})
	if err != nil {
		if resp != nil && notFoundResp(resp.Inspect().Response) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to multi-get %d documents: %w", len(ids), err)
	}

	docs := make([]map[string]any, len(resp.Docs))
	for i, d := range resp.Docs {
		if !d.Found || len(d.Source) == 0 {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(d.Source, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document %s: %w", d.ID, err)
		}
		docs[i] = doc
	}
	return docs, nil
}

// IndexDoc writes a single document under the given id.
func (e *OpenSearch) IndexDoc(ctx context.Context, index, id string, doc map[string]any) error {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = e.client.Index(ctx, opensearchapi.IndexReq{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("failed to index document %s: %w", id, err)
	}
	return nil
}

// DeleteDoc removes a single document by id.
func (e *OpenSearch) DeleteDoc(ctx context.Context, index, id string) error {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	if _, err := e.client.Document.Delete(ctx, opensearchapi.DocumentDeleteReq{
		Index:      index,
		DocumentID: id,
	}); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// BulkWrite indexes the given items in one bulk request. It returns the
// number of documents written; any transport failure or per-item rejection
// surfaces as an error covering the whole batch.
func (e *OpenSearch) BulkWrite(ctx context.Context, index string, items []BulkItem) (int, error) {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	var buf bytes.Buffer
	for _, item := range items {
		action, err := json.Marshal(map[string]any{"index": map[string]any{"_id": item.ID}})
		if err != nil {
			return 0, fmt.Errorf("failed to marshal bulk action: %w", err)
		}
		doc, err := json.Marshal(item.Doc)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal bulk document %s: %w", item.ID, err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	resp, err := e.client.Bulk(ctx, opensearchapi.BulkReq{
		Index: index,
		Body:  bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return 0, fmt.Errorf("bulk write of %d documents failed: %w", len(items), err)
	}

	if !resp.Errors {
		return len(items), nil
	}

	var rejected int
	var reason string
	for _, item := range resp.Items {
		for _, status := range item {
			if status.Status >= 300 {
				rejected++
				if reason == "" && status.Error != nil {
					reason = fmt.Sprintf("%s: %s", status.Error.Type, status.Error.Reason)
				}
			}
		}
	}
	if reason == "" {
		reason = "unknown error"
	}
	return 0, fmt.Errorf("bulk write rejected %d of %d documents: %s", rejected, len(items), reason)
}

// BulkRaw submits an engine-native bulk body (NDJSON) unchanged and returns
// the parsed response re-encoded as raw JSON.
func (e *OpenSearch) BulkRaw(ctx context.Context, index string, body []byte) (json.RawMessage, error) {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	resp, err := e.client.Bulk(ctx, opensearchapi.BulkReq{
		Index: index,
		Body:  bytes.NewReader(body),
	})
	if err != nil {
		return nil, fmt.Errorf("raw bulk failed: %w", err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bulk response: %w", err)
	}
	return raw, nil
}

// UpdateDoc applies a script to one document.
func (e *OpenSearch) UpdateDoc(ctx context.Context, index, id string, script Script) error {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	body, err := json.Marshal(map[string]any{"script": script})
	if err != nil {
		return fmt.Errorf("failed to marshal update script: %w", err)
	}

	if _, err := e.client.Update(ctx, opensearchapi.UpdateReq{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}); err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	return nil
}

// UpdateByQuery applies a script to every document matching query and
// returns the updated count.
func (e *OpenSearch) UpdateByQuery(ctx context.Context, index string, script Script, query map[string]any) (int, error) {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	body, err := json.Marshal(map[string]any{"script": script, "query": query})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal update body: %w", err)
	}

	resp, err := e.client.UpdateByQuery(ctx, opensearchapi.UpdateByQueryReq{
		Indices: []string{index},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		return 0, fmt.Errorf("update by query failed: %w", err)
	}
	return resp.Updated, nil
}

// Search runs a query body and returns exact totals, hits and raw
// aggregations.
func (e *OpenSearch) Search(ctx context.Context, index string, body map[string]any) (*Result, error) {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search body: %w", err)
	}

	resp, err := e.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{index},
		Body:    bytes.NewReader(raw),
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits, err := parseHits(resp.Hits.Hits)
	if err != nil {
		return nil, err
	}
	return &Result{
		Total:        resp.Hits.Total.Value,
		Hits:         hits,
		Aggregations: resp.Aggregations,
	}, nil
}

// OpenScroll runs the first page of a scrolled search, keeping the cursor
// alive for the configured TTL.
func (e *OpenSearch) OpenScroll(ctx context.Context, index string, body map[string]any) (*ScrollPage, error) {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scroll body: %w", err)
	}

	resp, err := e.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{index},
		Body:    bytes.NewReader(raw),
		Params:  opensearchapi.SearchParams{Scroll: e.scrollTTL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open scroll: %w", err)
	}

	hits, err := parseHits(resp.Hits.Hits)
	if err != nil {
		return nil, err
	}

	page := &ScrollPage{Total: resp.Hits.Total.Value, Hits: hits}
	if resp.ScrollID != nil {
		page.ScrollID = *resp.ScrollID
	}
	return page, nil
}

// AdvanceScroll fetches the next page for an open cursor and extends its TTL.
func (e *OpenSearch) AdvanceScroll(ctx context.Context, scrollID string) (*ScrollPage, error) {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	resp, err := e.client.Scroll.Get(ctx, opensearchapi.ScrollGetReq{
		ScrollID: scrollID,
		Params:   opensearchapi.ScrollGetParams{Scroll: e.scrollTTL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to advance scroll: %w", err)
	}

	hits, err := parseHits(resp.Hits.Hits)
	if err != nil {
		return nil, err
	}

	page := &ScrollPage{Total: resp.Hits.Total.Value, Hits: hits}
	if resp.ScrollID != nil {
		page.ScrollID = *resp.ScrollID
	}
	return page, nil
}

// Count returns the exact number of documents matching query. A nil query
// counts the whole index.
func (e *OpenSearch) Count(ctx context.Context, index string, query map[string]any) (int, error) {
	ctx, cancel := e.timeoutCtx(ctx)
	defer cancel()

	body := map[string]any{}
	if query != nil {
		body["query"] = query
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal count body: %w", err)
	}

	resp, err := e.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{index},
		Body:    bytes.NewReader(raw),
		Params: opensearchapi.SearchParams{
			Size:           opensearchapi.ToPointer(0),
			TrackTotalHits: true,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return resp.Hits.Total.Value, nil
}

// parseHits converts engine hits into the neutral Hit representation.
func parseHits(raw []opensearchapi.SearchHit) ([]Hit, error) {
	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		var source map[string]any
		if len(h.Source) > 0 {
			if err := json.Unmarshal(h.Source, &source); err != nil {
				return nil, fmt.Errorf("failed to unmarshal hit %s: %w", h.ID, err)
			}
		}
		hits = append(hits, Hit{ID: h.ID, Score: float64(h.Score), Source: source})
	}
	return hits, nil
}

// Close closes the engine connection.
func (e *OpenSearch) Close() error {
	return nil
}
