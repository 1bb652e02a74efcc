package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mediagrid/timestore/internal/domain"
)

type tagService interface {
	SetTag(ctx context.Context, entityType domain.EntityType, entityID, name, value string) (domain.Tag, error)
	GetTags(ctx context.Context, entityType domain.EntityType, entityID string) (map[string]string, error)
	DeleteTag(ctx context.Context, entityType domain.EntityType, entityID, name string) error
}

// TagHandler serves the tag sub-resource of sources, flows and segments.
// The owning entity type is bound per route.
type TagHandler struct {
	svc tagService
	log *slog.Logger
}

// NewTagHandler creates a TagHandler.
func NewTagHandler(svc tagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{svc: svc, log: logger.With("handler", "tags")}
}

// List returns a handler for GET /{entity}/{id}/tags.
func (h *TagHandler) List(entityType domain.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := h.svc.GetTags(r.Context(), entityType, r.PathValue("id"))
		if err != nil {
			handleError(w, r, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, tags)
	}
}

type setTagRequest struct {
	Value string `json:"value"`
}

// Set returns a handler for PUT /{entity}/{id}/tags/{name}.
func (h *TagHandler) Set(entityType domain.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setTagRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tag, err := h.svc.SetTag(r.Context(), entityType, r.PathValue("id"), r.PathValue("name"), req.Value)
		if err != nil {
			handleError(w, r, h.log, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{tag.Name: tag.Value})
	}
}

// Delete returns a handler for DELETE /{entity}/{id}/tags/{name}.
func (h *TagHandler) Delete(entityType domain.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.DeleteTag(r.Context(), entityType, r.PathValue("id"), r.PathValue("name")); err != nil {
			handleError(w, r, h.log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
