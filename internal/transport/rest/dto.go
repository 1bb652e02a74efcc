package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/domain"
	"github.com/mediagrid/timestore/internal/service/catalog"
)

type sourceResponse struct {
	ID          string     `json:"id"`
	Format      string     `json:"format"`
	Label       *string    `json:"label,omitempty"`
	Description *string    `json:"description,omitempty"`
	Collection  []string   `json:"collection,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	UpdatedBy   string     `json:"updated_by,omitempty"`
	CreatedAt   time.Time  `json:"created"`
	UpdatedAt   time.Time  `json:"updated"`
	Deleted     bool       `json:"deleted,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

func toSourceResponse(s domain.Source) sourceResponse {
	return sourceResponse{
		ID:          s.ID.String(),
		Format:      s.Format.String(),
		Label:       s.Label,
		Description: s.Description,
		Collection:  uuidStrings(s.Collection),
		CreatedBy:   s.CreatedBy,
		UpdatedBy:   s.UpdatedBy,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		Deleted:     s.Deleted,
		DeletedAt:   s.DeletedAt,
	}
}

type videoEssenceDTO struct {
	FrameWidth  int    `json:"frame_width"`
	FrameHeight int    `json:"frame_height"`
	FrameRate   string `json:"frame_rate"`
	Interlaced  bool   `json:"interlaced,omitempty"`
}

type audioEssenceDTO struct {
	SampleRate    int `json:"sample_rate"`
	BitsPerSample int `json:"bits_per_sample"`
	Channels      int `json:"channels"`
}

type imageEssenceDTO struct {
	FrameWidth  int `json:"frame_width"`
	FrameHeight int `json:"frame_height"`
}

type dataEssenceDTO struct {
	MimeType *string `json:"mime_type,omitempty"`
}

type flowResponse struct {
	ID          string     `json:"id"`
	SourceID    string     `json:"source_id"`
	Format      string     `json:"format"`
	Codec       *string    `json:"codec,omitempty"`
	Container   *string    `json:"container,omitempty"`
	Label       *string    `json:"label,omitempty"`
	Description *string    `json:"description,omitempty"`
	ReadOnly    bool       `json:"read_only"`
	Collection  []string   `json:"collection,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	UpdatedBy   string     `json:"updated_by,omitempty"`
	CreatedAt   time.Time  `json:"created"`
	UpdatedAt   time.Time  `json:"updated"`
	Deleted     bool       `json:"deleted,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	Video *videoEssenceDTO `json:"video,omitempty"`
	Audio *audioEssenceDTO `json:"audio,omitempty"`
	Image *imageEssenceDTO `json:"image,omitempty"`
	Data  *dataEssenceDTO  `json:"data,omitempty"`
}

func toFlowResponse(f domain.Flow) flowResponse {
	resp := flowResponse{
		ID:          f.ID.String(),
		SourceID:    f.SourceID.String(),
		Format:      f.Format.String(),
		Codec:       f.Codec,
		Container:   f.Container,
		Label:       f.Label,
		Description: f.Description,
		ReadOnly:    f.ReadOnly,
		Collection:  uuidStrings(f.Collection),
		CreatedBy:   f.CreatedBy,
		UpdatedBy:   f.UpdatedBy,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		Deleted:     f.Deleted,
		DeletedAt:   f.DeletedAt,
	}
	if f.Video != nil {
		resp.Video = &videoEssenceDTO{
			FrameWidth:  f.Video.FrameWidth,
			FrameHeight: f.Video.FrameHeight,
			FrameRate:   f.Video.FrameRate,
			Interlaced:  f.Video.Interlaced,
		}
	}
	if f.Audio != nil {
		resp.Audio = &audioEssenceDTO{
			SampleRate:    f.Audio.SampleRate,
			BitsPerSample: f.Audio.BitsPerSample,
			Channels:      f.Audio.Channels,
		}
	}
	if f.Image != nil {
		resp.Image = &imageEssenceDTO{
			FrameWidth:  f.Image.FrameWidth,
			FrameHeight: f.Image.FrameHeight,
		}
	}
	if f.Data != nil {
		resp.Data = &dataEssenceDTO{MimeType: f.Data.MimeType}
	}
	return resp
}

type segmentResponse struct {
	ID          string    `json:"id"`
	FlowID      string    `json:"flow_id"`
	ObjectID    string    `json:"object_id"`
	TimeRange   string    `json:"timerange"`
	StoragePath string    `json:"storage_path,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created"`

	SampleOffset  *int64 `json:"sample_offset,omitempty"`
	SampleCount   *int64 `json:"sample_count,omitempty"`
	KeyFrameCount *int32 `json:"key_frame_count,omitempty"`
}

func toSegmentResponse(s domain.Segment) segmentResponse {
	return segmentResponse{
		ID:            s.ID.String(),
		FlowID:        s.FlowID.String(),
		ObjectID:      s.ObjectID,
		TimeRange:     s.Range.String(),
		StoragePath:   s.StoragePath,
		CreatedBy:     s.CreatedBy,
		CreatedAt:     s.CreatedAt,
		SampleOffset:  s.SampleOffset,
		SampleCount:   s.SampleCount,
		KeyFrameCount: s.KeyFrameCount,
	}
}

type objectResponse struct {
	ID           string     `json:"id"`
	Size         int64      `json:"size"`
	CreatedAt    time.Time  `json:"created"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
	AccessCount  int64      `json:"access_count"`
}

func toObjectResponse(o domain.Object) objectResponse {
	return objectResponse{
		ID:           o.ID,
		Size:         o.Size,
		CreatedAt:    o.CreatedAt,
		LastAccessed: o.LastAccessed,
		AccessCount:  o.AccessCount,
	}
}

type deletionRequestResponse struct {
	ID         string    `json:"id"`
	FlowID     string    `json:"flow_id"`
	TimeRange  string    `json:"timerange"`
	Status     string    `json:"status"`
	DeleteFlow bool      `json:"delete_flow,omitempty"`
	Error      *string   `json:"error,omitempty"`
	CreatedBy  string    `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created"`
	UpdatedAt  time.Time `json:"updated"`
}

func toDeletionRequestResponse(r domain.DeletionRequest) deletionRequestResponse {
	return deletionRequestResponse{
		ID:         r.ID.String(),
		FlowID:     r.FlowID.String(),
		TimeRange:  r.Range.String(),
		Status:     r.Status.String(),
		DeleteFlow: r.DeleteFlow,
		Error:      r.Error,
		CreatedBy:  r.CreatedBy,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type subscriptionResponse struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	EventTypes []string  `json:"event_types,omitempty"`
	SourceIDs  []string  `json:"source_ids,omitempty"`
	FlowIDs    []string  `json:"flow_ids,omitempty"`
	CreatedBy  string    `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created"`
}

func toSubscriptionResponse(s domain.Subscription) subscriptionResponse {
	types := make([]string, 0, len(s.EventTypes))
	for _, et := range s.EventTypes {
		types = append(types, et.String())
	}
	return subscriptionResponse{
		ID:         s.ID.String(),
		URL:        s.URL,
		EventTypes: types,
		SourceIDs:  uuidStrings(s.SourceIDs),
		FlowIDs:    uuidStrings(s.FlowIDs),
		CreatedBy:  s.CreatedBy,
		CreatedAt:  s.CreatedAt,
	}
}

type batchItemResponse struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func toBatchResponse(results []catalog.BatchItemResult) []batchItemResponse {
	out := make([]batchItemResponse, 0, len(results))
	for _, res := range results {
		item := batchItemResponse{Index: res.Index, ID: res.ID}
		if res.Err != nil {
			item.Error = res.Err.Error()
			item.ID = ""
		}
		out = append(out, item)
	}
	return out
}

func uuidStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
