package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mediagrid/timestore/internal/domain"
)

type thresholdService interface {
	Threshold() int
	SetThreshold(n int) error
}

type reconcileService interface {
	Reconcile(ctx context.Context) error
	ListOrphans(ctx context.Context, limit int) ([]domain.Object, error)
}

// AdminHandler serves operational endpoints: the deletion sync threshold and
// reference reconciliation.
type AdminHandler struct {
	deletion thresholdService
	refs     reconcileService
	log      *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(deletion thresholdService, refs reconcileService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		deletion: deletion,
		refs:     refs,
		log:      logger.With("handler", "admin"),
	}
}

type thresholdBody struct {
	Threshold int `json:"threshold"`
}

// GetThreshold handles GET /admin/deletion/threshold.
func (h *AdminHandler) GetThreshold(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, thresholdBody{Threshold: h.deletion.Threshold()})
}

// SetThreshold handles PUT /admin/deletion/threshold.
func (h *AdminHandler) SetThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.deletion.SetThreshold(req.Threshold); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, thresholdBody{Threshold: h.deletion.Threshold()})
}

// Reconcile handles POST /admin/references/reconcile.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if err := h.refs.Reconcile(r.Context()); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Orphans handles GET /admin/objects/orphans.
func (h *AdminHandler) Orphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.refs.ListOrphans(r.Context(), queryInt(r, "limit"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]objectResponse, 0, len(orphans))
	for _, o := range orphans {
		out = append(out, toObjectResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}
