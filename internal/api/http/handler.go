package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"github.com/Zereker/docstore/pkg/docstore"
	"github.com/Zereker/docstore/pkg/log"
	"github.com/Zereker/docstore/pkg/mq"
)

// Handler handles HTTP API requests
type Handler struct {
	logger      *slog.Logger
	registry    *docstore.Registry
	queue       mq.MessageQueue
	ingestTopic string
}

// NewHandler creates a new HTTP handler. A nil queue disables the
// async ingest endpoint.
func NewHandler(registry *docstore.Registry, queue mq.MessageQueue, ingestTopic string) *Handler {
	return &Handler{
		logger:      log.Logger("http.handler"),
		registry:    registry,
		queue:       queue,
		ingestTopic: ingestTopic,
	}
}

// Response represents a standard API response
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Document writes
	mux.HandleFunc("POST /api/v1/indexes/{index}/documents", h.Insert)
	mux.HandleFunc("POST /api/v1/indexes/{index}/documents:bulk", h.InsertMany)
	mux.HandleFunc("DELETE /api/v1/indexes/{index}/documents/{id}", h.Delete)
	mux.HandleFunc("POST /api/v1/indexes/{index}/documents/{id}/update", h.Update)
	mux.HandleFunc("POST /api/v1/indexes/{index}/update", h.UpdateMany)

	// Document reads
	mux.HandleFunc("GET /api/v1/indexes/{index}/documents/{id}", h.Get)
	mux.HandleFunc("POST /api/v1/indexes/{index}/documents:mget", h.GetMany)
	mux.HandleFunc("GET /api/v1/indexes/{index}/search", h.Search)
	mux.HandleFunc("POST /api/v1/indexes/{index}/search", h.Search)
	mux.HandleFunc("POST /api/v1/indexes/{index}/search:raw", h.RawSearch)
	mux.HandleFunc("GET /api/v1/indexes/{index}/facets/{field}", h.Facets)
	mux.HandleFunc("GET /api/v1/indexes/{index}/count", h.Count)
	mux.HandleFunc("GET /api/v1/indexes/{index}/export", h.Export)

	// Index lifecycle
	mux.HandleFunc("DELETE /api/v1/indexes/{index}", h.Drop)

	// Async ingestion
	mux.HandleFunc("POST /api/v1/ingest", h.Ingest)

	// Health check
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*docstore.Store, bool) {
	name := r.PathValue("index")
	if name == "" {
		h.writeError(w, http.StatusBadRequest, "index name is required")
		return nil, false
	}

	store, err := h.registry.Open(r.Context(), name)
	if err != nil {
		h.logger.Error("failed to open store", "index", name, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return store, true
}

// Insert handles POST /api/v1/indexes/{index}/documents
func (h *Handler) Insert(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var doc docstore.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := store.Insert(r.Context(), doc); err != nil {
		if errors.Is(err, docstore.ErrMissingID) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("insert failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    map[string]string{"id": doc.ID()},
	})
}

type bulkRequest struct {
	Documents []docstore.Document `json:"documents"`
	BatchSize int                 `json:"batch_size"`
	Refresh   bool                `json:"refresh"`
}

// InsertMany handles POST /api/v1/indexes/{index}/documents:bulk
func (h *Handler) InsertMany(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 {
		h.writeError(w, http.StatusBadRequest, "documents are required")
		return
	}

	result, err := store.InsertMany(r.Context(), req.Documents, docstore.BulkOptions{
		BatchSize:        req.BatchSize,
		RefreshEachBatch: req.Refresh,
	})
	if err != nil {
		if errors.Is(err, docstore.ErrMissingID) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("bulk insert failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

// Get handles GET /api/v1/indexes/{index}/documents/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	doc, found, err := store.Lookup(r.Context(), id)
	if err != nil {
		h.logger.Error("get failed", "id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "document not found")
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: doc})
}

type mgetRequest struct {
	IDs []string `json:"ids"`
}

// GetMany handles POST /api/v1/indexes/{index}/documents:mget
func (h *Handler) GetMany(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req mgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.IDs) == 0 {
		h.writeError(w, http.StatusBadRequest, "ids are required")
		return
	}

	docs, err := store.GetMany(r.Context(), req.IDs)
	if err != nil {
		h.logger.Error("mget failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: docs})
}

// Delete handles DELETE /api/v1/indexes/{index}/documents/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := store.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete failed", "id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]string{"deleted": id},
	})
}

type updateRequest struct {
	Fields  map[string]any `json:"fields"`
	Scope   string         `json:"scope"`
	Strict  bool           `json:"strict"`
	Refresh bool           `json:"refresh"`
}

func (r *updateRequest) options(w http.ResponseWriter, h *Handler) (docstore.UpdateOptions, bool) {
	opts := docstore.UpdateOptions{Strict: r.Strict, Refresh: r.Refresh}
	switch r.Scope {
	case "", "partial":
		opts.Scope = docstore.ScopePartial
	case "full":
		opts.Scope = docstore.ScopeFull
	default:
		h.writeError(w, http.StatusBadRequest, "unknown update scope: "+r.Scope)
		return opts, false
	}
	return opts, true
}

// Update handles POST /api/v1/indexes/{index}/documents/{id}/update
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	opts, ok := req.options(w, h)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := store.Update(r.Context(), id, req.Fields, opts); err != nil {
		h.logger.Error("update failed", "id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]string{"updated": id},
	})
}

type updateManyRequest struct {
	updateRequest
	Query map[string]any `json:"query"`
	IDs   []string       `json:"ids"`
}

// UpdateMany handles POST /api/v1/indexes/{index}/update
func (h *Handler) UpdateMany(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req updateManyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	opts, ok := req.options(w, h)
	if !ok {
		return
	}

	updated, err := store.UpdateMany(r.Context(), req.Query, req.IDs, req.Fields, opts)
	if err != nil {
		if errors.Is(err, docstore.ErrInvalidIDList) || errors.Is(err, docstore.ErrNoSelector) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("update by query failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]int{"updated": updated},
	})
}

type searchRequest struct {
	Query string `json:"q"`
	Sort  any    `json:"sort"`
	From  int    `json:"from"`
	Size  int    `json:"size"`
}

type searchResponse struct {
	Total     int                 `json:"total"`
	Documents []docstore.Document `json:"documents"`
}

// Search handles GET and POST /api/v1/indexes/{index}/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if r.Method == http.MethodGet {
		req.Query = r.URL.Query().Get("q")
		req.From = queryInt(r, "from", 0)
		req.Size = queryInt(r, "size", 0)
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	total, docs, err := store.Query(r.Context(), req.Query, docstore.QueryOptions{
		Sort: req.Sort,
		From: req.From,
		Size: req.Size,
	})
	if err != nil {
		h.logger.Error("search failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    searchResponse{Total: total, Documents: docs},
	})
}

// RawSearch handles POST /api/v1/indexes/{index}/search:raw
func (h *Handler) RawSearch(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	total, docs, err := store.RawQuery(r.Context(), body)
	if err != nil {
		h.logger.Error("raw search failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    searchResponse{Total: total, Documents: docs},
	})
}

// Facets handles GET /api/v1/indexes/{index}/facets/{field}
func (h *Handler) Facets(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	field := r.PathValue("field")
	facets, err := store.Facets(r.Context(), field, docstore.FacetOptions{
		Query:     r.URL.Query().Get("q"),
		Size:      queryInt(r, "size", 0),
		SortByKey: r.URL.Query().Get("sort_by_key") == "true",
	})
	if err != nil {
		h.logger.Error("facets failed", "field", field, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: facets})
}

// Count handles GET /api/v1/indexes/{index}/count
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	n, err := store.Count(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("count failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]int{"count": n}})
}

// Export handles GET /api/v1/indexes/{index}/export, streaming matching
// documents as NDJSON through a server-side cursor.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	it := store.IterateQuery(r.Context(), r.URL.Query().Get("q"), docstore.IterateOptions{
		PageSize: queryInt(r, "page_size", 0),
		MaxSize:  queryInt(r, "max_size", 0),
	})

	w.Header().Set("Content-Type", "application/x-ndjson")
	encoder := json.NewEncoder(w)

	for it.Next() {
		// The no-result marker is not part of the export.
		if it.Document() == nil {
			continue
		}
		if err := encoder.Encode(it.Document()); err != nil {
			h.logger.Error("export write failed", "error", err)
			return
		}
	}
	if err := it.Err(); err != nil {
		// Headers are gone; all we can do is log and cut the stream.
		h.logger.Error("export failed", "error", err)
	}
}

// Drop handles DELETE /api/v1/indexes/{index}
func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	if err := store.Drop(r.Context()); err != nil {
		h.logger.Error("drop failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.registry.Forget(store.Name())

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]string{"dropped": store.Name()},
	})
}

type ingestRequest struct {
	Documents []docstore.Document `json:"documents"`
}

// Ingest handles POST /api/v1/ingest, publishing documents to the
// ingest topic for asynchronous indexing.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		h.writeError(w, http.StatusServiceUnavailable, "async ingestion is not configured")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 {
		h.writeError(w, http.StatusBadRequest, "documents are required")
		return
	}

	for i, doc := range req.Documents {
		if doc.ID() == "" {
			h.writeError(w, http.StatusBadRequest, "document "+strconv.Itoa(i)+" has no id")
			return
		}
	}

	for _, doc := range req.Documents {
		message, err := json.Marshal(doc)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid document: "+err.Error())
			return
		}
		if err := h.queue.Publish(h.ingestTopic, message); err != nil {
			h.logger.Error("publish failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	h.writeJSON(w, http.StatusAccepted, Response{
		Success: true,
		Data:    map[string]int{"queued": len(req.Documents)},
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]string{
			"status": "healthy",
		},
	})
}

// queryInt reads an integer query parameter with a fallback.
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}
