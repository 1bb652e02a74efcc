package domain

import (
	"time"

	"github.com/google/uuid"
)

// Source is a logical media essence. Flows are its encoded renditions.
type Source struct {
	ID          uuid.UUID
	Format      ContentFormat
	Label       *string
	Description *string
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Collection holds the IDs of member Sources for a "multi" source
	// collection. Membership lives in a join relation, not on the row.
	Collection []uuid.UUID

	Deleted   bool
	DeletedAt *time.Time
	DeletedBy *string
}

// IsDeleted returns true if the source has been soft-deleted.
func (s *Source) IsDeleted() bool {
	return s.Deleted
}

// Validate checks invariants on a source about to be created.
func (s *Source) Validate() error {
	if !s.Format.IsValid() {
		return NewValidationError("format", "must be one of video, audio, image, data, multi")
	}
	return nil
}

// SourceUpdateParams carries partial updates for a source.
// nil means "leave unchanged"; a pointer to "" clears the field.
type SourceUpdateParams struct {
	Label       *string
	Description *string
}
