package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/domain"
)

type deletionService interface {
	Submit(ctx context.Context, flowID uuid.UUID, rng domain.TimeRange, deleteFlow bool) (domain.DeletionRequest, error)
	Status(ctx context.Context, id uuid.UUID) (domain.DeletionRequest, error)
}

// DeletionHandler serves bulk deletion endpoints. Flow deletion and segment
// range deletion both produce a DeletionRequest; small ones come back
// already completed, larger ones pending.
type DeletionHandler struct {
	svc deletionService
	log *slog.Logger
}

// NewDeletionHandler creates a DeletionHandler.
func NewDeletionHandler(svc deletionService, logger *slog.Logger) *DeletionHandler {
	return &DeletionHandler{svc: svc, log: logger.With("handler", "deletion")}
}

// DeleteSegments handles DELETE /flows/{flowId}/segments?timerange=...
func (h *DeletionHandler) DeleteSegments(w http.ResponseWriter, r *http.Request) {
	flowID, ok := pathUUID(w, r, "flowId")
	if !ok {
		return
	}
	rng, ok := queryRange(w, r)
	if !ok {
		return
	}

	h.submit(w, r, flowID, rng, false)
}

// DeleteFlow handles DELETE /flows/{id}: removes every segment and then the
// flow row itself.
func (h *DeletionHandler) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	flowID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	h.submit(w, r, flowID, domain.EternityRange(), true)
}

func (h *DeletionHandler) submit(w http.ResponseWriter, r *http.Request, flowID uuid.UUID, rng domain.TimeRange, deleteFlow bool) {
	req, err := h.svc.Submit(r.Context(), flowID, rng, deleteFlow)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	status := http.StatusAccepted
	if req.Status.IsTerminal() {
		status = http.StatusOK
	}
	writeJSON(w, status, toDeletionRequestResponse(req))
}

// Status handles GET /deletion-requests/{id}.
func (h *DeletionHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	req, err := h.svc.Status(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toDeletionRequestResponse(req))
}
