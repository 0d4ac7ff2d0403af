package docstore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Zereker/docstore/pkg/search"
)

const (
	// DefaultBatchSize caps the documents submitted per bulk request.
	DefaultBatchSize = 1000

	// bulkErrorLimit bounds the error message kept in a BulkResult.
	bulkErrorLimit = 512
)

// BulkOptions tunes a bulk ingestion call.
type BulkOptions struct {
	// BatchSize is the number of documents per bulk request. Zero or
	// negative means DefaultBatchSize.
	BatchSize int

	// RefreshEachBatch forces a visibility refresh after every batch.
	RefreshEachBatch bool
}

// BulkResult is the aggregate outcome of one bulk ingestion call.
// Counters are summed across every batch of the call.
type BulkResult struct {
	// Succeeded counts documents the engine accepted.
	Succeeded int `json:"succeeded"`

	// Failed counts documents in failed batches. A failed batch counts
	// whole; per-document attribution is not attempted.
	Failed int `json:"failed"`

	// Errors holds the most recent batch error, truncated to 512
	// characters.
	Errors string `json:"errors,omitempty"`
}

// InsertMany writes documents in batches of BatchSize, continuing past
// failed batches and accounting successes and failures in the result.
// Every document must carry an id. Documents without an indexed
// timestamp all share one stamp taken at the start of the call.
func (s *Store) InsertMany(ctx context.Context, docs []Document, opts BulkOptions) (BulkResult, error) {
	var result BulkResult

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	now := nowMillis()
	items := make([]search.BulkItem, len(docs))
	for i, doc := range docs {
		id, ok := idString(doc[FieldID])
		if !ok {
			return result, errors.WithMessagef(ErrMissingID, "document %d", i)
		}
		if _, ok := doc[FieldIndexed]; !ok {
			doc[FieldIndexed] = now
		}
		items[i] = search.BulkItem{ID: id, Doc: doc}
	}

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		written, err := s.engine.BulkWrite(ctx, s.index, batch)
		if err != nil {
			result.Failed += len(batch)
			result.Errors = truncateError(err)
			s.logger.Error("bulk insert batch failed", "size", len(batch), "error", err)
		} else {
			result.Succeeded += written
		}

		if opts.RefreshEachBatch {
			if err := s.Refresh(ctx); err != nil {
				return result, err
			}
		}
	}

	return result, nil
}

// RawBulk submits an engine-native bulk body (NDJSON) unchanged and
// returns the raw engine response, optionally refreshing afterwards.
func (s *Store) RawBulk(ctx context.Context, body []byte, refresh bool) (json.RawMessage, error) {
	res, err := s.engine.BulkRaw(ctx, s.index, body)
	if err != nil {
		return nil, errors.WithMessage(err, "raw bulk failed")
	}

	if refresh {
		if err := s.Refresh(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

// truncateError bounds an error message for embedding in a BulkResult.
func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > bulkErrorLimit {
		msg = msg[:bulkErrorLimit]
	}
	return msg
}
