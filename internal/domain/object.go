package domain

import (
	"time"

	"github.com/google/uuid"
)

// Object is a stored binary payload. Identity is the content-addressed (or
// caller-generated) object key; no single flow owns it. Lifetime is governed
// by the reference count of non-deleted segments pointing at it.
type Object struct {
	ID        string
	Size      int64
	CreatedAt time.Time

	// Access statistics, updated when a download handle is issued.
	LastAccessed *time.Time
	AccessCount  int64
}

// ObjectReference is the per-flow share of an object's reference count.
type ObjectReference struct {
	FlowID       uuid.UUID
	SegmentCount int
}

// Validate checks invariants on an object about to be registered.
func (o *Object) Validate() error {
	if o.ID == "" {
		return NewValidationError("object_id", "required")
	}
	if o.Size < 0 {
		return NewValidationError("size", "must not be negative")
	}
	return nil
}
