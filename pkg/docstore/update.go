package docstore

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/Zereker/docstore/pkg/search"
)

// UpdateScope selects how much of a document a scripted update replaces.
type UpdateScope int

const (
	// ScopePartial touches only the fields named in the update.
	ScopePartial UpdateScope = iota

	// ScopeFull nulls every field except id before applying the update.
	ScopeFull
)

// String returns the scope name used in script selection errors.
func (s UpdateScope) String() string {
	switch s {
	case ScopePartial:
		return "partial"
	case ScopeFull:
		return "full"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// UpdateOptions selects the update expression applied server-side. The
// zero value is a lenient partial update without refresh.
type UpdateOptions struct {
	// Scope selects partial or full replacement.
	Scope UpdateScope

	// Strict limits the update to fields already present on the document.
	Strict bool

	// Refresh forces a visibility refresh after the update.
	Refresh bool
}

// Update expressions in the engine's painless scripting language. Field
// values travel in params, never spliced into the source, so the engine
// can cache and reuse the compiled scripts.
const (
	// Set each param field only when the document already has it.
	scriptPartialStrict = `
for (entry in params.entrySet()) {
    if (ctx._source.containsKey(entry.getKey())) {
        ctx._source[entry.getKey()] = entry.getValue();
    }
}
`

	// Set each param field unconditionally.
	scriptPartial = `
for (entry in params.entrySet()) {
    ctx._source[entry.getKey()] = entry.getValue();
}
`

	// Null out every field except id, then set param fields only when
	// the document had them.
	scriptFullStrict = `
for (entry in ctx._source.entrySet()) {
    if (entry.getKey() != 'id') {
        ctx._source[entry.getKey()] = null;
    }
}

for (entry in params.entrySet()) {
    if (ctx._source.containsKey(entry.getKey())) {
        ctx._source[entry.getKey()] = entry.getValue();
    }
}
`

	// Null out every field except id, then set every param field.
	scriptFull = `
for (entry in ctx._source.entrySet()) {
    if (entry.getKey() != 'id') {
        ctx._source[entry.getKey()] = null;
    }
}

for (entry in params.entrySet()) {
    ctx._source[entry.getKey()] = entry.getValue();
}
`
)

// updateScript returns the expression for a scope and strict combination.
func updateScript(scope UpdateScope, strict bool) (string, error) {
	switch {
	case scope == ScopePartial && strict:
		return scriptPartialStrict, nil
	case scope == ScopePartial:
		return scriptPartial, nil
	case scope == ScopeFull && strict:
		return scriptFullStrict, nil
	case scope == ScopeFull:
		return scriptFull, nil
	default:
		return "", errors.Errorf("unknown update scope: %s", scope)
	}
}

// buildScript assembles the parameterized engine script for an update.
func buildScript(fields map[string]any, opts UpdateOptions) (search.Script, error) {
	source, err := updateScript(opts.Scope, opts.Strict)
	if err != nil {
		return search.Script{}, err
	}

	if fields == nil {
		fields = map[string]any{}
	}
	return search.Script{
		Source: source,
		Lang:   "painless",
		Params: fields,
	}, nil
}

// Update applies a scripted update to one document. The index is
// refreshed only when opts requests it.
func (s *Store) Update(ctx context.Context, id string, fields map[string]any, opts UpdateOptions) error {
	script, err := buildScript(fields, opts)
	if err != nil {
		return err
	}

	if err := s.engine.UpdateDoc(ctx, s.index, id, script); err != nil {
		return errors.WithMessagef(err, "failed to update document %s", id)
	}

	if opts.Refresh {
		return s.Refresh(ctx)
	}
	return nil
}

// UpdateMany applies a scripted update to every document selected by
// query or ids. A non-nil ids slice takes precedence over query and
// must not be empty; it becomes a terms match on the id field. Returns
// the number of documents the engine updated.
func (s *Store) UpdateMany(ctx context.Context, query map[string]any, ids []string, fields map[string]any, opts UpdateOptions) (int, error) {
	if ids != nil {
		s.logger.Debug("ignoring query since ids are provided")

		if len(ids) == 0 {
			return 0, ErrInvalidIDList
		}
		query = map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"terms": map[string]any{FieldID: ids}},
				},
			},
		}
	}
	if query == nil {
		return 0, ErrNoSelector
	}

	script, err := buildScript(fields, opts)
	if err != nil {
		return 0, err
	}

	updated, err := s.engine.UpdateByQuery(ctx, s.index, script, query)
	if err != nil {
		return 0, errors.WithMessage(err, "failed to update by query")
	}

	if opts.Refresh {
		if err := s.Refresh(ctx); err != nil {
			return updated, err
		}
	}
	return updated, nil
}
