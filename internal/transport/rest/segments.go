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

type segmentService interface {
	CreateSegment(ctx context.Context, in catalog.CreateSegmentInput) (domain.Segment, error)
	ListSegments(ctx context.Context, flowID uuid.UUID, rng domain.TimeRange, q domain.SegmentQuery) (catalog.SegmentPage, error)
	GetSegment(ctx context.Context, id uuid.UUID) (domain.Segment, error)
	DeleteSegment(ctx context.Context, id uuid.UUID) error
}

// SegmentHandler serves segment REST endpoints.
type SegmentHandler struct {
	svc segmentService
	log *slog.Logger
}

// NewSegmentHandler creates a SegmentHandler.
func NewSegmentHandler(svc segmentService, logger *slog.Logger) *SegmentHandler {
	return &SegmentHandler{svc: svc, log: logger.With("handler", "segments")}
}

type createSegmentRequest struct {
	ObjectID    string `json:"object_id"`
	TimeRange   string `json:"timerange"`
	StoragePath string `json:"storage_path"`
	ObjectSize  int64  `json:"object_size"`

	SampleOffset  *int64 `json:"sample_offset"`
	SampleCount   *int64 `json:"sample_count"`
	KeyFrameCount *int32 `json:"key_frame_count"`
}

// Create handles POST /flows/{flowId}/segments.
func (h *SegmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	flowID, ok := pathUUID(w, r, "flowId")
	if !ok {
		return
	}

	var req createSegmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rng, err := domain.ParseTimeRange(req.TimeRange)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	seg, err := h.svc.CreateSegment(r.Context(), catalog.CreateSegmentInput{
		FlowID:        flowID,
		ObjectID:      req.ObjectID,
		Range:         rng,
		StoragePath:   req.StoragePath,
		ObjectSize:    req.ObjectSize,
		SampleOffset:  req.SampleOffset,
		SampleCount:   req.SampleCount,
		KeyFrameCount: req.KeyFrameCount,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSegmentResponse(seg))
}

type segmentPageResponse struct {
	Segments []segmentResponse `json:"segments"`
	Cursor   string            `json:"cursor,omitempty"`
}

// List handles GET /flows/{flowId}/segments?timerange=...&limit=...&cursor=...
func (h *SegmentHandler) List(w http.ResponseWriter, r *http.Request) {
	flowID, ok := pathUUID(w, r, "flowId")
	if !ok {
		return
	}
	rng, ok := queryRange(w, r)
	if !ok {
		return
	}

	page, err := h.svc.ListSegments(r.Context(), flowID, rng, domain.SegmentQuery{
		Limit:  queryInt(r, "limit"),
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := segmentPageResponse{
		Segments: make([]segmentResponse, 0, len(page.Segments)),
		Cursor:   page.Cursor,
	}
	for _, seg := range page.Segments {
		out.Segments = append(out.Segments, toSegmentResponse(seg))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /segments/{id}.
func (h *SegmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	seg, err := h.svc.GetSegment(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toSegmentResponse(seg))
}

// Delete handles DELETE /segments/{id}.
func (h *SegmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteSegment(r.Context(), id); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
