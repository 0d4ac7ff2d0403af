package docstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Zereker/docstore/pkg/search"
)

// IterateOptions tunes a scrolled iteration.
type IterateOptions struct {
	// Sort is an optional engine-native sort clause.
	Sort any

	// PageSize is the cursor page size. Zero or negative means
	// DefaultPageSize.
	PageSize int

	// MaxSize stops iteration once at least this many documents have
	// been yielded. Zero means unbounded. The bound is checked at page
	// boundaries, so the last page may push the count past it.
	MaxSize int
}

// Iterator streams documents from a server-side cursor, one document
// per Next call. An iterator owns its cursor exclusively: it is
// single-consumer and cannot be restarted. Concurrent iteration
// requires independent iterators.
type Iterator struct {
	store   *Store
	ctx     context.Context
	body    map[string]any
	maxSize int

	opened   bool
	done     bool
	scrollID string
	total    int
	yielded  int
	page     []search.Hit
	pos      int
	cur      Document
	err      error
}

// Iterate streams every document in the index.
func (s *Store) Iterate(ctx context.Context, pageSize int) *Iterator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Iterator{
		store: s,
		ctx:   ctx,
		body: map[string]any{
			"query": map[string]any{"match_all": map[string]any{}},
			"size":  pageSize,
		},
	}
}

// IterateQuery streams every document matching the free-text query q.
// Empty and "*" queries match everything.
func (s *Store) IterateQuery(ctx context.Context, q string, opts IterateOptions) *Iterator {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	body := map[string]any{
		"query": filterQuery(q),
		"size":  pageSize,
	}
	if opts.Sort != nil {
		body["sort"] = opts.Sort
	}

	return &Iterator{store: s, ctx: ctx, body: body, maxSize: opts.MaxSize}
}

// Next advances to the next document, fetching cursor pages as needed.
// It returns false once the cursor is exhausted, the max size bound is
// reached, or an error occurs. A query matching nothing yields a single
// nil document before Next returns false; callers must expect it.
func (it *Iterator) Next() bool {
	if it.err != nil || it.done {
		return false
	}

	if !it.opened {
		if !it.open() {
			return false
		}
		if it.total == 0 {
			it.cur = nil
			it.done = true
			return true
		}
	}

	for it.pos >= len(it.page) {
		if !it.advance() {
			return false
		}
	}

	hit := it.page[it.pos]
	it.pos++
	it.yielded++
	it.cur = Document(hit.Source)
	return true
}

// Document returns the document produced by the last successful Next.
// It is nil for the no-result marker.
func (it *Iterator) Document() Document {
	return it.cur
}

// Total reports the query's total match count, valid once Next has been
// called.
func (it *Iterator) Total() int {
	return it.total
}

// Err returns the first error encountered while iterating.
func (it *Iterator) Err() error {
	return it.err
}

func (it *Iterator) open() bool {
	page, err := it.store.engine.OpenScroll(it.ctx, it.store.index, it.body)
	if err != nil {
		it.err = errors.WithMessage(err, "failed to open cursor")
		it.done = true
		return false
	}

	it.opened = true
	it.scrollID = page.ScrollID
	it.total = page.Total
	it.page = page.Hits
	it.pos = 0

	it.store.logger.Info("start iterating", "total", it.total)
	return true
}

// advance fetches the next page once the buffered one is drained. An
// abandoned cursor is left to expire server-side through its TTL.
func (it *Iterator) advance() bool {
	if it.maxSize > 0 && it.yielded >= it.maxSize {
		it.store.logger.Info("reached max size", "max_size", it.maxSize, "yielded", it.yielded)
		it.done = true
		return false
	}

	page, err := it.store.engine.AdvanceScroll(it.ctx, it.scrollID)
	if err != nil {
		it.err = errors.WithMessage(err, "failed to advance cursor")
		it.done = true
		return false
	}
	if page.ScrollID != "" {
		it.scrollID = page.ScrollID
	}
	if len(page.Hits) == 0 {
		it.done = true
		return false
	}

	it.page = page.Hits
	it.pos = 0
	return true
}

// IDIterator streams pages of document ids from a server-side cursor,
// one page per Next call. It is the fast variant for feeding id-based
// pipelines without materializing full documents downstream. Like
// Iterator it is single-consumer and non-restartable.
type IDIterator struct {
	store   *Store
	ctx     context.Context
	body    map[string]any
	maxSize int

	opened   bool
	done     bool
	scrollID string
	total    int
	yielded  int
	page     []string
	err      error
}

// ScrollIDs streams pages of document ids for an engine-native query
// body. The body's size clause is overwritten with pageSize.
func (s *Store) ScrollIDs(ctx context.Context, body map[string]any, pageSize, maxSize int) *IDIterator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if body == nil {
		body = map[string]any{"query": map[string]any{"match_all": map[string]any{}}}
	}
	body["size"] = pageSize

	return &IDIterator{store: s, ctx: ctx, body: body, maxSize: maxSize}
}

// Next fetches the next page of ids. The first page is always yielded;
// a later page that would push the yielded count past the max size
// bound is dropped entirely. A query matching nothing yields a single
// nil page before Next returns false.
func (it *IDIterator) Next() bool {
	if it.err != nil || it.done {
		return false
	}

	if !it.opened {
		page, err := it.store.engine.OpenScroll(it.ctx, it.store.index, it.body)
		if err != nil {
			it.err = errors.WithMessage(err, "failed to open cursor")
			it.done = true
			return false
		}
		it.opened = true
		it.scrollID = page.ScrollID
		it.total = page.Total

		if it.total == 0 {
			it.page = nil
			it.done = true
			return true
		}

		it.store.logger.Info("start iterating", "total", it.total)
		it.page = hitIDs(page.Hits)
		it.yielded += len(it.page)
		return true
	}

	page, err := it.store.engine.AdvanceScroll(it.ctx, it.scrollID)
	if err != nil {
		it.err = errors.WithMessage(err, "failed to advance cursor")
		it.done = true
		return false
	}
	if page.ScrollID != "" {
		it.scrollID = page.ScrollID
	}
	if len(page.Hits) == 0 {
		it.done = true
		return false
	}

	ids := hitIDs(page.Hits)
	if it.maxSize > 0 && it.yielded+len(ids) > it.maxSize {
		it.store.logger.Info("reached max size", "max_size", it.maxSize, "yielded", it.yielded)
		it.done = true
		return false
	}

	it.page = ids
	it.yielded += len(ids)
	return true
}

// Page returns the ids produced by the last successful Next. It is nil
// for the no-result marker.
func (it *IDIterator) Page() []string {
	return it.page
}

// Total reports the query's total match count, valid once Next has been
// called.
func (it *IDIterator) Total() int {
	return it.total
}

// Err returns the first error encountered while iterating.
func (it *IDIterator) Err() error {
	return it.err
}

// hitIDs extracts document ids from hit sources, falling back to the
// engine id when a source has none.
func hitIDs(hits []search.Hit) []string {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if id, ok := idString(h.Source[FieldID]); ok {
			ids = append(ids, id)
		} else {
			ids = append(ids, h.ID)
		}
	}
	return ids
}
