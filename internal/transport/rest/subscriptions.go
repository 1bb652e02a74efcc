package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/domain"
	"github.com/mediagrid/timestore/internal/service/events"
)

type subscriptionService interface {
	Subscribe(ctx context.Context, in events.SubscribeInput) (domain.Subscription, error)
	GetSubscription(ctx context.Context, id uuid.UUID) (domain.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	Unsubscribe(ctx context.Context, id uuid.UUID) error
}

// SubscriptionHandler serves webhook subscription endpoints.
type SubscriptionHandler struct {
	svc subscriptionService
	log *slog.Logger
}

// NewSubscriptionHandler creates a SubscriptionHandler.
func NewSubscriptionHandler(svc subscriptionService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, log: logger.With("handler", "subscriptions")}
}

type subscribeRequest struct {
	URL        string   `json:"url"`
	EventTypes []string `json:"event_types"`
	SourceIDs  []string `json:"source_ids"`
	FlowIDs    []string `json:"flow_ids"`
}

// Create handles POST /subscriptions.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sourceIDs, err := parseUUIDs(req.SourceIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid source id")
		return
	}
	flowIDs, err := parseUUIDs(req.FlowIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid flow id")
		return
	}
	types := make([]domain.EventType, 0, len(req.EventTypes))
	for _, et := range req.EventTypes {
		types = append(types, domain.EventType(et))
	}

	sub, err := h.svc.Subscribe(r.Context(), events.SubscribeInput{
		URL:        req.URL,
		EventTypes: types,
		SourceIDs:  sourceIDs,
		FlowIDs:    flowIDs,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

// Get handles GET /subscriptions/{id}.
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	sub, err := h.svc.GetSubscription(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// List handles GET /subscriptions.
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.ListSubscriptions(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscriptionResponse(sub))
	}
	writeJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /subscriptions/{id}.
func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.Unsubscribe(r.Context(), id); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
