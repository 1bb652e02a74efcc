package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/domain"
	"github.com/mediagrid/timestore/internal/service/catalog"
)

type sourceService interface {
	CreateSource(ctx context.Context, in catalog.CreateSourceInput) (domain.Source, error)
	CreateSources(ctx context.Context, ins []catalog.CreateSourceInput) ([]catalog.BatchItemResult, error)
	GetSource(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.Source, error)
	ListSources(ctx context.Context, f domain.SourceFilter) ([]domain.Source, error)
	UpdateSource(ctx context.Context, id uuid.UUID, params domain.SourceUpdateParams) (domain.Source, error)
	SetSourceCollection(ctx context.Context, id uuid.UUID, memberIDs []uuid.UUID) error
	DeleteSource(ctx context.Context, id uuid.UUID) error
	tagFilterService
}

// SourceHandler serves source REST endpoints.
type SourceHandler struct {
	svc sourceService
	log *slog.Logger
}

// NewSourceHandler creates a SourceHandler.
func NewSourceHandler(svc sourceService, logger *slog.Logger) *SourceHandler {
	return &SourceHandler{svc: svc, log: logger.With("handler", "sources")}
}

type createSourceRequest struct {
	Format      string   `json:"format"`
	Label       *string  `json:"label"`
	Description *string  `json:"description"`
	Collection  []string `json:"collection"`
}

func (req createSourceRequest) toInput() (catalog.CreateSourceInput, error) {
	collection, err := parseUUIDs(req.Collection)
	if err != nil {
		return catalog.CreateSourceInput{}, domain.NewValidationError("collection", "invalid member id")
	}
	return catalog.CreateSourceInput{
		Format:      domain.ContentFormat(req.Format),
		Label:       req.Label,
		Description: req.Description,
		Collection:  collection,
	}, nil
}

// Create handles POST /sources.
func (h *SourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := req.toInput()
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	src, err := h.svc.CreateSource(r.Context(), in)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSourceResponse(src))
}

// CreateBatch handles POST /sources/batch.
func (h *SourceHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []createSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ins := make([]catalog.CreateSourceInput, 0, len(reqs))
	for _, req := range reqs {
		in, err := req.toInput()
		if err != nil {
			handleError(w, r, h.log, err)
			return
		}
		ins = append(ins, in)
	}

	results, err := h.svc.CreateSources(r.Context(), ins)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusMultiStatus, toBatchResponse(results))
}

// Get handles GET /sources/{id}.
func (h *SourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	src, err := h.svc.GetSource(r.Context(), id, queryBool(r, "include_deleted"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toSourceResponse(src))
}

// List handles GET /sources. Supports format, label, paging and tag filter
// query parameters.
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.SourceFilter{
		IncludeDeleted: queryBool(r, "include_deleted"),
		Limit:          queryInt(r, "limit"),
		Offset:         queryInt(r, "offset"),
	}
	if v := r.URL.Query().Get("format"); v != "" {
		format := domain.ContentFormat(v)
		filter.Format = &format
	}
	if v := r.URL.Query().Get("label"); v != "" {
		filter.Label = &v
	}

	// Tag predicates resolve to an id set that constrains the list query
	// itself, so limit and offset page the filtered result.
	if tf := parseTagFilters(r); !tf.empty() {
		ids, err := tf.matchingIDs(r.Context(), h.svc, domain.EntityTypeSource)
		if err != nil {
			handleError(w, r, h.log, err)
			return
		}
		if len(ids) == 0 {
			writeJSON(w, http.StatusOK, []sourceResponse{})
			return
		}
		filter.IDs = ids
	}

	sources, err := h.svc.ListSources(r.Context(), filter)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]sourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, toSourceResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateSourceRequest struct {
	Label       *string `json:"label"`
	Description *string `json:"description"`
}

// Update handles PATCH /sources/{id}.
func (h *SourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req updateSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	src, err := h.svc.UpdateSource(r.Context(), id, domain.SourceUpdateParams{
		Label:       req.Label,
		Description: req.Description,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toSourceResponse(src))
}

type collectionRequest struct {
	Members []string `json:"members"`
}

// SetCollection handles PUT /sources/{id}/collection.
func (h *SourceHandler) SetCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	members, err := parseUUIDs(req.Members)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	if err := h.svc.SetSourceCollection(r.Context(), id, members); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /sources/{id}.
func (h *SourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteSource(r.Context(), id); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
