package domain

import (
	"time"

	"github.com/google/uuid"
)

// Segment is a time-bounded slice of a Flow's media, backed by exactly one
// stored Object. Many segments, including segments of different flows, may
// reference the same object.
type Segment struct {
	ID          uuid.UUID
	FlowID      uuid.UUID
	ObjectID    string
	Range       TimeRange
	StoragePath string

	// Optional media addressing hints.
	SampleOffset  *int64
	SampleCount   *int64
	KeyFrameCount *int32

	CreatedBy string
	CreatedAt time.Time

	Deleted   bool
	DeletedAt *time.Time
	DeletedBy *string
}

// IsDeleted returns true if the segment has been soft-deleted.
func (s *Segment) IsDeleted() bool {
	return s.Deleted
}

// Validate checks invariants on a segment about to be created.
func (s *Segment) Validate() error {
	if s.FlowID == uuid.Nil {
		return NewValidationError("flow_id", "required")
	}
	if s.ObjectID == "" {
		return NewValidationError("object_id", "required")
	}
	if s.Range.IsEmpty() {
		return NewValidationError("timerange", "must not be empty")
	}
	return nil
}

// DurationSeconds is the segment's finite duration, derived from its range.
// Open-ended segments report ok=false.
func (s *Segment) DurationSeconds() (float64, bool) {
	return s.Range.DurationSeconds()
}
