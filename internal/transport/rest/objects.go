package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mediagrid/timestore/internal/domain"
	"github.com/mediagrid/timestore/internal/service/catalog"
)

type objectService interface {
	RegisterObject(ctx context.Context, in catalog.RegisterObjectInput) (domain.Object, error)
	RegisterObjects(ctx context.Context, ins []catalog.RegisterObjectInput) ([]catalog.BatchItemResult, error)
	GetObject(ctx context.Context, id string) (domain.Object, error)
	IssueUploadHandle(ctx context.Context, objectKey string) (string, error)
	IssueDownloadHandle(ctx context.Context, objectKey string) (string, error)
}

// ObjectHandler serves object REST endpoints.
type ObjectHandler struct {
	svc objectService
	log *slog.Logger
}

// NewObjectHandler creates an ObjectHandler.
func NewObjectHandler(svc objectService, logger *slog.Logger) *ObjectHandler {
	return &ObjectHandler{svc: svc, log: logger.With("handler", "objects")}
}

type registerObjectRequest struct {
	ID   string `json:"id"`
	Size int64  `json:"size"`
}

// Register handles POST /objects.
func (h *ObjectHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.svc.RegisterObject(r.Context(), catalog.RegisterObjectInput{ID: req.ID, Size: req.Size})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toObjectResponse(o))
}

// RegisterBatch handles POST /objects/batch.
func (h *ObjectHandler) RegisterBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []registerObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ins := make([]catalog.RegisterObjectInput, 0, len(reqs))
	for _, req := range reqs {
		ins = append(ins, catalog.RegisterObjectInput{ID: req.ID, Size: req.Size})
	}

	results, err := h.svc.RegisterObjects(r.Context(), ins)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusMultiStatus, toBatchResponse(results))
}

// Get handles GET /objects/{id}.
func (h *ObjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetObject(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toObjectResponse(o))
}

type handleResponse struct {
	URL string `json:"url"`
}

// UploadHandle handles POST /objects/{id}/upload.
func (h *ObjectHandler) UploadHandle(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.IssueUploadHandle(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, handleResponse{URL: url})
}

// DownloadHandle handles GET /objects/{id}/download.
func (h *ObjectHandler) DownloadHandle(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.IssueDownloadHandle(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, handleResponse{URL: url})
}
