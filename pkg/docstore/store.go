package docstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/Zereker/docstore/pkg/log"
	"github.com/Zereker/docstore/pkg/search"
)

// Config holds store configuration for one index.
type Config struct {
	// Name is the index backing this store.
	Name string `toml:"name"`

	// Settings is an optional engine-native settings/mappings payload
	// applied when the index is first created. It wins over SettingsFile.
	Settings map[string]any `toml:"settings"`

	// SettingsFile points to a JSON settings payload, loaded only when
	// Settings is empty.
	SettingsFile string `toml:"settings_file"`

	// Logger overrides the default module logger.
	Logger *slog.Logger `toml:"-"`
}

// Validate checks store configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// Store exposes one index as a simple document collection. Calls are
// synchronous and hold no state beyond the engine handle, which is safe
// for concurrent use.
type Store struct {
	engine search.Engine
	index  string
	logger *slog.Logger
}

// New creates a store over the named index, creating the index when it
// does not exist yet. An existing index is left untouched.
func New(ctx context.Context, engine search.Engine, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Logger("docstore")
	}

	s := &Store{
		engine: engine,
		index:  cfg.Name,
		logger: logger.With("index", cfg.Name),
	}

	settings := cfg.Settings
	if len(settings) == 0 && cfg.SettingsFile != "" {
		data, err := os.ReadFile(cfg.SettingsFile)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to read settings file %s", cfg.SettingsFile)
		}
		if err := json.Unmarshal(data, &settings); err != nil {
			return nil, errors.WithMessagef(err, "failed to parse settings file %s", cfg.SettingsFile)
		}
	}

	if err := s.ensureIndex(ctx, settings); err != nil {
		return nil, err
	}
	return s, nil
}

// Name returns the backing index name.
func (s *Store) Name() string {
	return s.index
}

func (s *Store) ensureIndex(ctx context.Context, settings map[string]any) error {
	exists, err := s.engine.IndexExists(ctx, s.index)
	if err != nil {
		return errors.WithMessagef(err, "failed to check index %s", s.index)
	}
	if exists {
		s.logger.Info("index exists, no need to create")
		return nil
	}

	s.logger.Info("creating index")
	if err := s.engine.CreateIndex(ctx, s.index, settings); err != nil {
		return errors.WithMessagef(err, "failed to create index %s", s.index)
	}
	return nil
}

// Drop deletes the backing index. A missing index is treated as success.
func (s *Store) Drop(ctx context.Context) error {
	s.logger.Info("deleting index")
	return s.engine.DeleteIndex(ctx, s.index)
}

// Refresh makes recent writes visible to subsequent reads.
func (s *Store) Refresh(ctx context.Context) error {
	return s.engine.RefreshIndex(ctx, s.index)
}

// Insert writes one document and refreshes the index, so the document is
// visible to the next read. The id field is required; indexed is stamped
// only when absent.
func (s *Store) Insert(ctx context.Context, doc Document) error {
	id, ok := idString(doc[FieldID])
	if !ok {
		return ErrMissingID
	}

	if _, ok := doc[FieldIndexed]; !ok {
		doc[FieldIndexed] = nowMillis()
	}

	if err := s.engine.IndexDoc(ctx, s.index, id, doc); err != nil {
		return errors.WithMessagef(err, "failed to insert document %s", id)
	}
	return s.Refresh(ctx)
}

// Get fetches one document. Absence is reported through the bool and
// logged as a warning; it is not an error.
func (s *Store) Get(ctx context.Context, id string) (Document, bool, error) {
	doc, found, err := s.lookup(ctx, id)
	if err == nil && !found {
		s.logger.Warn("document not found", "id", id)
	}
	return doc, found, err
}

// Lookup behaves like Get without the not-found warning, for callers
// that probe for absence as part of normal control flow.
func (s *Store) Lookup(ctx context.Context, id string) (Document, bool, error) {
	return s.lookup(ctx, id)
}

func (s *Store) lookup(ctx context.Context, id string) (Document, bool, error) {
	source, err := s.engine.GetDoc(ctx, s.index, id)
	if err != nil {
		if errors.Is(err, search.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, errors.WithMessagef(err, "failed to get document %s", id)
	}
	return Document(source), true, nil
}

// GetMany fetches documents positionally: result[i] corresponds to
// ids[i] and is nil when that id is missing. A missing index yields a
// nil slice, not an error.
func (s *Store) GetMany(ctx context.Context, ids []string) ([]Document, error) {
	sources, err := s.engine.MultiGet(ctx, s.index, ids)
	if err != nil {
		if errors.Is(err, search.ErrNotFound) {
			s.logger.Warn("index not found", "ids", ids)
			return nil, nil
		}
		return nil, errors.WithMessagef(err, "failed to get %d documents", len(ids))
	}

	docs := make([]Document, len(sources))
	for i, source := range sources {
		if source != nil {
			docs[i] = Document(source)
		}
	}
	return docs, nil
}

// Delete removes one document and refreshes the index.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.engine.DeleteDoc(ctx, s.index, id); err != nil {
		return errors.WithMessagef(err, "failed to delete document %s", id)
	}
	return s.Refresh(ctx)
}
