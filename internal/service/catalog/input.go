package catalog

import (
	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/domain"
)

// CreateSourceInput carries the fields of a new source.
type CreateSourceInput struct {
	Format      domain.ContentFormat
	Label       *string
	Description *string

	// Collection lists member source ids for a multi source.
	Collection []uuid.UUID
}

// CreateFlowInput carries the fields of a new flow. Exactly one essence
// pointer matching Format must be set for non-multi formats.
type CreateFlowInput struct {
	SourceID    uuid.UUID
	Format      domain.ContentFormat
	Codec       *string
	Container   *string
	Label       *string
	Description *string
	ReadOnly    bool

	Video *domain.VideoEssence
	Audio *domain.AudioEssence
	Image *domain.ImageEssence
	Data  *domain.DataEssence

	// Collection lists constituent flow ids for a multi flow.
	Collection []uuid.UUID
}

// CreateSegmentInput carries the fields of a new segment. If ObjectID is
// unknown to the catalog, an object record is registered first with
// ObjectSize as its size.
type CreateSegmentInput struct {
	FlowID      uuid.UUID
	ObjectID    string
	Range       domain.TimeRange
	StoragePath string
	ObjectSize  int64

	SampleOffset  *int64
	SampleCount   *int64
	KeyFrameCount *int32
}

// RegisterObjectInput carries the fields of an object registration.
type RegisterObjectInput struct {
	ID   string
	Size int64
}

// BatchItemResult reports the outcome of one item of a bulk create. Items
// in a failed chunk share the chunk's error; other chunks are unaffected.
type BatchItemResult struct {
	Index int
	ID    string
	Err   error
}
