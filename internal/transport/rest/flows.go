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

type flowService interface {
	CreateFlow(ctx context.Context, in catalog.CreateFlowInput) (domain.Flow, error)
	CreateFlows(ctx context.Context, ins []catalog.CreateFlowInput) ([]catalog.BatchItemResult, error)
	GetFlow(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.Flow, error)
	ListFlows(ctx context.Context, f domain.FlowFilter) ([]domain.Flow, error)
	UpdateFlow(ctx context.Context, id uuid.UUID, params domain.FlowUpdateParams) (domain.Flow, error)
	SetFlowCollection(ctx context.Context, id uuid.UUID, memberIDs []uuid.UUID) error
	tagFilterService
}

// FlowHandler serves flow REST endpoints. Flow deletion is not here: it goes
// through the deletion engine.
type FlowHandler struct {
	svc flowService
	log *slog.Logger
}

// NewFlowHandler creates a FlowHandler.
func NewFlowHandler(svc flowService, logger *slog.Logger) *FlowHandler {
	return &FlowHandler{svc: svc, log: logger.With("handler", "flows")}
}

type createFlowRequest struct {
	SourceID    string   `json:"source_id"`
	Format      string   `json:"format"`
	Codec       *string  `json:"codec"`
	Container   *string  `json:"container"`
	Label       *string  `json:"label"`
	Description *string  `json:"description"`
	ReadOnly    bool     `json:"read_only"`
	Collection  []string `json:"collection"`

	Video *videoEssenceDTO `json:"video"`
	Audio *audioEssenceDTO `json:"audio"`
	Image *imageEssenceDTO `json:"image"`
	Data  *dataEssenceDTO  `json:"data"`
}

func (req createFlowRequest) toInput() (catalog.CreateFlowInput, error) {
	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		return catalog.CreateFlowInput{}, domain.NewValidationError("source_id", "invalid uuid")
	}
	collection, err := parseUUIDs(req.Collection)
	if err != nil {
		return catalog.CreateFlowInput{}, domain.NewValidationError("collection", "invalid member id")
	}

	in := catalog.CreateFlowInput{
		SourceID:    sourceID,
		Format:      domain.ContentFormat(req.Format),
		Codec:       req.Codec,
		Container:   req.Container,
		Label:       req.Label,
		Description: req.Description,
		ReadOnly:    req.ReadOnly,
		Collection:  collection,
	}
	if req.Video != nil {
		in.Video = &domain.VideoEssence{
			FrameWidth:  req.Video.FrameWidth,
			FrameHeight: req.Video.FrameHeight,
			FrameRate:   req.Video.FrameRate,
			Interlaced:  req.Video.Interlaced,
		}
	}
	if req.Audio != nil {
		in.Audio = &domain.AudioEssence{
			SampleRate:    req.Audio.SampleRate,
			BitsPerSample: req.Audio.BitsPerSample,
			Channels:      req.Audio.Channels,
		}
	}
	if req.Image != nil {
		in.Image = &domain.ImageEssence{
			FrameWidth:  req.Image.FrameWidth,
			FrameHeight: req.Image.FrameHeight,
		}
	}
	if req.Data != nil {
		in.Data = &domain.DataEssence{MimeType: req.Data.MimeType}
	}
	return in, nil
}

// Create handles POST /flows.
func (h *FlowHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := req.toInput()
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	f, err := h.svc.CreateFlow(r.Context(), in)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFlowResponse(f))
}

// CreateBatch handles POST /flows/batch.
func (h *FlowHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []createFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ins := make([]catalog.CreateFlowInput, 0, len(reqs))
	for _, req := range reqs {
		in, err := req.toInput()
		if err != nil {
			handleError(w, r, h.log, err)
			return
		}
		ins = append(ins, in)
	}

	results, err := h.svc.CreateFlows(r.Context(), ins)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusMultiStatus, toBatchResponse(results))
}

// Get handles GET /flows/{id}.
func (h *FlowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	f, err := h.svc.GetFlow(r.Context(), id, queryBool(r, "include_deleted"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toFlowResponse(f))
}

// List handles GET /flows.
func (h *FlowHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.FlowFilter{
		IncludeDeleted: queryBool(r, "include_deleted"),
		Limit:          queryInt(r, "limit"),
		Offset:         queryInt(r, "offset"),
	}
	if v := r.URL.Query().Get("source_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid source_id")
			return
		}
		filter.SourceID = &id
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
		ids, err := tf.matchingIDs(r.Context(), h.svc, domain.EntityTypeFlow)
		if err != nil {
			handleError(w, r, h.log, err)
			return
		}
		if len(ids) == 0 {
			writeJSON(w, http.StatusOK, []flowResponse{})
			return
		}
		filter.IDs = ids
	}

	flows, err := h.svc.ListFlows(r.Context(), filter)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]flowResponse, 0, len(flows))
	for _, f := range flows {
		out = append(out, toFlowResponse(f))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateFlowRequest struct {
	Label       *string `json:"label"`
	Description *string `json:"description"`
	ReadOnly    *bool   `json:"read_only"`
}

// Update handles PATCH /flows/{id}.
func (h *FlowHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req updateFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := h.svc.UpdateFlow(r.Context(), id, domain.FlowUpdateParams{
		Label:       req.Label,
		Description: req.Description,
		ReadOnly:    req.ReadOnly,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toFlowResponse(f))
}

// SetCollection handles PUT /flows/{id}/collection.
func (h *FlowHandler) SetCollection(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.SetFlowCollection(r.Context(), id, members); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
