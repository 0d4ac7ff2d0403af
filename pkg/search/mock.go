package search

import (
	"context"
	"encoding/json"
	"sync"
)

// MockEngine implements Engine in memory with configurable responses.
// It is intended for tests that exercise store logic without a live cluster.
// Every call is recorded; each method can be overridden through its Func
// field, otherwise an in-memory default applies.
type MockEngine struct {
	mu sync.Mutex

	// Overridable behaviors. When nil, the in-memory default applies.
	IndexExistsFunc   func(ctx context.Context, index string) (bool, error)
	CreateIndexFunc   func(ctx context.Context, index string, settings map[string]any) error
	DeleteIndexFunc   func(ctx context.Context, index string) error
	RefreshIndexFunc  func(ctx context.Context, index string) error
	GetDocFunc        func(ctx context.Context, index, id string) (map[string]any, error)
	MultiGetFunc      func(ctx context.Context, index string, ids []string) ([]map[string]any, error)
	IndexDocFunc      func(ctx context.Context, index, id string, doc map[string]any) error
	DeleteDocFunc     func(ctx context.Context, index, id string) error
	BulkWriteFunc     func(ctx context.Context, index string, items []BulkItem) (int, error)
	BulkRawFunc       func(ctx context.Context, index string, body []byte) (json.RawMessage, error)
	UpdateDocFunc     func(ctx context.Context, index, id string, script Script) error
	UpdateByQueryFunc func(ctx context.Context, index string, script Script, query map[string]any) (int, error)
	SearchFunc        func(ctx context.Context, index string, body map[string]any) (*Result, error)
	OpenScrollFunc    func(ctx context.Context, index string, body map[string]any) (*ScrollPage, error)
	AdvanceScrollFunc func(ctx context.Context, scrollID string) (*ScrollPage, error)
	CountFunc         func(ctx context.Context, index string, query map[string]any) (int, error)

	// Recorded calls, in order.
	CreatedIndices []string
	DeletedIndices []string
	Refreshes      []string
	IndexedIDs     []string
	DeletedIDs     []string
	BulkBatches    [][]BulkItem
	UpdatedIDs     []string
	UpdateScripts  []Script
	UpdateQueries  []map[string]any
	SearchBodies   []map[string]any
	CountQueries   []map[string]any
	ScrollBodies   []map[string]any
	ScrollCursors  []string

	// indices maps index name to its creation settings
	indices map[string]map[string]any
	// docs maps index name to id to document source
	docs map[string]map[string]map[string]any

	// scripted scroll pages served by OpenScroll/AdvanceScroll defaults
	scrollTotal  int
	scrollPages  [][]Hit
	scrollServed int

	// canned result served by the Search default
	searchResult *Result
}

var _ Engine = (*MockEngine)(nil)

// NewMockEngine creates an empty in-memory engine.
func NewMockEngine() *MockEngine {
	return &MockEngine{
		indices: make(map[string]map[string]any),
		docs:    make(map[string]map[string]map[string]any),
	}
}

// SeedDocs stores documents directly, bypassing call recording.
func (m *MockEngine) SeedDocs(index string, docs map[string]map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[index] == nil {
		m.docs[index] = make(map[string]map[string]any)
	}
	if _, ok := m.indices[index]; !ok {
		m.indices[index] = nil
	}
	for id, doc := range docs {
		m.docs[index][id] = doc
	}
}

// SetSearchResult sets the result served by Search when SearchFunc is nil.
func (m *MockEngine) SetSearchResult(r *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchResult = r
}

// SetScrollPages scripts the pages served by OpenScroll and AdvanceScroll
// when their Func fields are nil. Every page reports the given total.
func (m *MockEngine) SetScrollPages(total int, pages ...[]Hit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrollTotal = total
	m.scrollPages = pages
	m.scrollServed = 0
}

// IndexExists reports whether the index was created or seeded.
func (m *MockEngine) IndexExists(ctx context.Context, index string) (bool, error) {
	if m.IndexExistsFunc != nil {
		return m.IndexExistsFunc(ctx, index)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.indices[index]
	return ok, nil
}

// CreateIndex records the call and registers the index in memory.
func (m *MockEngine) CreateIndex(ctx context.Context, index string, settings map[string]any) error {
	m.mu.Lock()
	m.CreatedIndices = append(m.CreatedIndices, index)
	m.mu.Unlock()
	if m.CreateIndexFunc != nil {
		return m.CreateIndexFunc(ctx, index, settings)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indices[index] = settings
	if m.docs[index] == nil {
		m.docs[index] = make(map[string]map[string]any)
	}
	return nil
}

// DeleteIndex records the call and drops the index. Missing indices are
// ignored, matching the real engine's idempotent delete.
func (m *MockEngine) DeleteIndex(ctx context.Context, index string) error {
	m.mu.Lock()
	m.DeletedIndices = append(m.DeletedIndices, index)
	m.mu.Unlock()
	if m.DeleteIndexFunc != nil {
		return m.DeleteIndexFunc(ctx, index)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indices, index)
	delete(m.docs, index)
	return nil
}

// RefreshIndex records the refresh.
func (m *MockEngine) RefreshIndex(ctx context.Context, index string) error {
	m.mu.Lock()
	m.Refreshes = append(m.Refreshes, index)
	m.mu.Unlock()
	if m.RefreshIndexFunc != nil {
		return m.RefreshIndexFunc(ctx, index)
	}
	return nil
}

// GetDoc returns the stored document or ErrNotFound.
func (m *MockEngine) GetDoc(ctx context.Context, index, id string) (map[string]any, error) {
	if m.GetDocFunc != nil {
		return m.GetDocFunc(ctx, index, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[index][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

// MultiGet returns stored documents positionally, nil for missing ids.
func (m *MockEngine) MultiGet(ctx context.Context, index string, ids []string) ([]map[string]any, error) {
	if m.MultiGetFunc != nil {
		return m.MultiGetFunc(ctx, index, ids)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]map[string]any, len(ids))
	for i, id := range ids {
		if doc, ok := m.docs[index][id]; ok {
			docs[i] = doc
		}
	}
	return docs, nil
}

// IndexDoc records the call and stores the document.
func (m *MockEngine) IndexDoc(ctx context.Context, index, id string, doc map[string]any) error {
	m.mu.Lock()
	m.IndexedIDs = append(m.IndexedIDs, id)
	m.mu.Unlock()
	if m.IndexDocFunc != nil {
		return m.IndexDocFunc(ctx, index, id, doc)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[index] == nil {
		m.docs[index] = make(map[string]map[string]any)
	}
	m.docs[index][id] = doc
	return nil
}

// DeleteDoc records the call and removes the document.
func (m *MockEngine) DeleteDoc(ctx context.Context, index, id string) error {
	m.mu.Lock()
	m.DeletedIDs = append(m.DeletedIDs, id)
	m.mu.Unlock()
	if m.DeleteDocFunc != nil {
		return m.DeleteDocFunc(ctx, index, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[index], id)
	return nil
}

// BulkWrite records the batch and stores every item.
func (m *MockEngine) BulkWrite(ctx context.Context, index string, items []BulkItem) (int, error) {
	m.mu.Lock()
	m.BulkBatches = append(m.BulkBatches, items)
	m.mu.Unlock()
	if m.BulkWriteFunc != nil {
		return m.BulkWriteFunc(ctx, index, items)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[index] == nil {
		m.docs[index] = make(map[string]map[string]any)
	}
	for _, item := range items {
		m.docs[index][item.ID] = item.Doc
	}
	return len(items), nil
}

// BulkRaw returns an empty successful bulk response.
func (m *MockEngine) BulkRaw(ctx context.Context, index string, body []byte) (json.RawMessage, error) {
	if m.BulkRawFunc != nil {
		return m.BulkRawFunc(ctx, index, body)
	}
	return json.RawMessage(`{"took":0,"errors":false,"items":[]}`), nil
}

// UpdateDoc records the target id and script.
func (m *MockEngine) UpdateDoc(ctx context.Context, index, id string, script Script) error {
	m.mu.Lock()
	m.UpdatedIDs = append(m.UpdatedIDs, id)
	m.UpdateScripts = append(m.UpdateScripts, script)
	m.mu.Unlock()
	if m.UpdateDocFunc != nil {
		return m.UpdateDocFunc(ctx, index, id, script)
	}
	return nil
}

// UpdateByQuery records the script and query, reporting zero updates.
func (m *MockEngine) UpdateByQuery(ctx context.Context, index string, script Script, query map[string]any) (int, error) {
	m.mu.Lock()
	m.UpdateScripts = append(m.UpdateScripts, script)
	m.UpdateQueries = append(m.UpdateQueries, query)
	m.mu.Unlock()
	if m.UpdateByQueryFunc != nil {
		return m.UpdateByQueryFunc(ctx, index, script, query)
	}
	return 0, nil
}

// Search records the body and serves the canned result, or an empty one.
func (m *MockEngine) Search(ctx context.Context, index string, body map[string]any) (*Result, error) {
	m.mu.Lock()
	m.SearchBodies = append(m.SearchBodies, body)
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, index, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchResult != nil {
		return m.searchResult, nil
	}
	return &Result{Hits: []Hit{}}, nil
}

// OpenScroll records the body and serves the first scripted page.
func (m *MockEngine) OpenScroll(ctx context.Context, index string, body map[string]any) (*ScrollPage, error) {
	m.mu.Lock()
	m.ScrollBodies = append(m.ScrollBodies, body)
	m.mu.Unlock()
	if m.OpenScrollFunc != nil {
		return m.OpenScrollFunc(ctx, index, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	page := &ScrollPage{ScrollID: "mock-scroll", Total: m.scrollTotal, Hits: []Hit{}}
	if m.scrollServed < len(m.scrollPages) {
		page.Hits = m.scrollPages[m.scrollServed]
		m.scrollServed++
	}
	return page, nil
}

// AdvanceScroll records the cursor and serves the next scripted page. An
// exhausted script yields empty pages.
func (m *MockEngine) AdvanceScroll(ctx context.Context, scrollID string) (*ScrollPage, error) {
	m.mu.Lock()
	m.ScrollCursors = append(m.ScrollCursors, scrollID)
	m.mu.Unlock()
	if m.AdvanceScrollFunc != nil {
		return m.AdvanceScrollFunc(ctx, scrollID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	page := &ScrollPage{ScrollID: scrollID, Total: m.scrollTotal, Hits: []Hit{}}
	if m.scrollServed < len(m.scrollPages) {
		page.Hits = m.scrollPages[m.scrollServed]
		m.scrollServed++
	}
	return page, nil
}

// Count records the query and reports the number of stored documents.
func (m *MockEngine) Count(ctx context.Context, index string, query map[string]any) (int, error) {
	m.mu.Lock()
	m.CountQueries = append(m.CountQueries, query)
	m.mu.Unlock()
	if m.CountFunc != nil {
		return m.CountFunc(ctx, index, query)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[index]), nil
}
