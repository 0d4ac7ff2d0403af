// Package ingest consumes documents from the ingest topic, normalizes
// them and feeds the store's bulk pipeline in micro-batches.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Zereker/docstore/internal/metrics"
	"github.com/Zereker/docstore/pkg/docstore"
	"github.com/Zereker/docstore/pkg/log"
	"github.com/Zereker/docstore/pkg/redis"
	"github.com/Zereker/docstore/pkg/textutil"
	"github.com/Zereker/docstore/pkg/timeutil"
)

// Config holds ingest pipeline configuration
type Config struct {
	// Topic is the Kafka topic carrying documents to ingest.
	Topic string `toml:"topic"`

	// Index is the target index name.
	Index string `toml:"index"`

	// BatchSize flushes the buffer once it holds this many documents.
	BatchSize int `toml:"batch_size"`

	// FlushInterval flushes a partially filled buffer on a timer.
	FlushInterval string `toml:"flush_interval"`

	// HTMLFields are stripped of markup before indexing.
	HTMLFields []string `toml:"html_fields"`

	// DateField, when present on a document, derives a sortable
	// date_num field from its timestamp.
	DateField string `toml:"date_field"`

	// DedupField, when set, drops documents whose fingerprint of this
	// field was seen recently. Requires redis.
	DedupField string `toml:"dedup_field"`

	// DedupTTL bounds the dedup window.
	DedupTTL string `toml:"dedup_ttl"`
}

// Validate checks ingest configuration
func (c *Config) Validate() error {
	if c.Topic == "" {
		return errors.New("topic is required")
	}
	if c.Index == "" {
		return errors.New("index is required")
	}
	if c.FlushInterval != "" {
		if _, err := time.ParseDuration(c.FlushInterval); err != nil {
			return errors.Errorf("flush_interval is invalid: %v", err)
		}
	}
	if c.DedupTTL != "" {
		if _, err := time.ParseDuration(c.DedupTTL); err != nil {
			return errors.Errorf("dedup_ttl is invalid: %v", err)
		}
	}
	return nil
}

func (c *Config) batchSize() int {
	if c.BatchSize <= 0 {
		return 100
	}
	return c.BatchSize
}

func (c *Config) flushInterval() time.Duration {
	d, err := time.ParseDuration(c.FlushInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// DedupTTLDuration returns the configured dedup window, one hour by
// default.
func (c *Config) DedupTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.DedupTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Ingester buffers incoming documents and flushes them to the store in
// batches, on size or on a timer.
type Ingester struct {
	logger *slog.Logger
	config Config
	store  *docstore.Store
	dedup  *redis.Dedup // nil disables deduplication

	mu  sync.Mutex
	buf []docstore.Document
}

// New creates an ingester over the store. A nil dedup disables
// fingerprint deduplication.
func New(store *docstore.Store, dedup *redis.Dedup, cfg Config) *Ingester {
	return &Ingester{
		logger: log.Logger("ingest"),
		config: cfg,
		store:  store,
		dedup:  dedup,
	}
}

// Handle processes one message from the ingest topic: decode, prepare,
// buffer and flush once the batch is full. Malformed messages are
// logged and dropped so the claim keeps moving.
func (g *Ingester) Handle(ctx context.Context, topic string, message []byte) error {
	metrics.IngestConsumed.Inc()

	var doc docstore.Document
	if err := json.Unmarshal(message, &doc); err != nil {
		g.logger.Error("dropping malformed message", "topic", topic, "error", err)
		return nil
	}
	if doc.ID() == "" {
		g.logger.Error("dropping message without document id", "topic", topic)
		return nil
	}

	keep, err := g.prepare(ctx, doc)
	if err != nil {
		return err
	}
	if !keep {
		metrics.IngestDeduplicated.Inc()
		g.logger.Debug("dropping duplicate document", "id", doc.ID())
		return nil
	}

	g.mu.Lock()
	g.buf = append(g.buf, doc)
	full := len(g.buf) >= g.config.batchSize()
	g.mu.Unlock()

	if full {
		g.Flush(ctx)
	}
	return nil
}

// prepare normalizes one document in place and reports whether it
// should be kept.
func (g *Ingester) prepare(ctx context.Context, doc docstore.Document) (bool, error) {
	for _, field := range g.config.HTMLFields {
		if raw, ok := doc[field].(string); ok {
			doc[field] = textutil.CleanHTML(raw)
		}
	}

	if g.config.DateField != "" {
		if raw, ok := doc[g.config.DateField].(string); ok {
			if t, err := timeutil.Parse(raw, ""); err == nil {
				doc["date_num"] = timeutil.DateNum(t)
			}
		}
	}

	if g.dedup != nil && g.config.DedupField != "" {
		raw, ok := doc[g.config.DedupField].(string)
		if ok && raw != "" {
			seen, err := g.dedup.Seen(ctx, textutil.Fingerprint(raw))
			if err != nil {
				return false, errors.WithMessage(err, "dedup check failed")
			}
			if seen {
				return false, nil
			}
		}
	}

	return true, nil
}

// Flush writes the buffered documents through the bulk pipeline. Batch
// failures are accounted by the pipeline, not retried here.
func (g *Ingester) Flush(ctx context.Context) {
	g.mu.Lock()
	batch := g.buf
	g.buf = nil
	g.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	result, err := g.store.InsertMany(ctx, batch, docstore.BulkOptions{BatchSize: g.config.batchSize()})
	if err != nil {
		metrics.IngestDocuments.WithLabelValues("failed").Add(float64(len(batch)))
		g.logger.Error("flush failed", "size", len(batch), "error", err)
		return
	}

	metrics.IngestDocuments.WithLabelValues("inserted").Add(float64(result.Succeeded))
	metrics.IngestDocuments.WithLabelValues("failed").Add(float64(result.Failed))

	g.logger.Info("flushed batch",
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	if result.Errors != "" {
		g.logger.Error("batch errors", "error", result.Errors)
	}
}

// Pending returns the number of buffered documents, for tests.
func (g *Ingester) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.buf)
}

// Run flushes partially filled buffers on a timer until the context is
// cancelled, then drains what is left.
func (g *Ingester) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.config.flushInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Flush(ctx)
		case <-ctx.Done():
			g.Flush(context.Background())
			return nil
		}
	}
}
