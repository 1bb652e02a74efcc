package domain

import (
	"time"
)

// Tag is one annotation on a catalog entity. Tags live in their own relation
// keyed by (entity_type, entity_id, name) so that existence and value
// filters can be indexed independently of the owning entity's schema.
type Tag struct {
	EntityType EntityType
	EntityID   string
	Name       string
	Value      string
	CreatedBy  string
	UpdatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the tag triple before an upsert.
func (t *Tag) Validate() error {
	if !t.EntityType.IsValid() {
		return NewValidationError("entity_type", "must be one of source, flow, segment")
	}
	if t.EntityID == "" {
		return NewValidationError("entity_id", "required")
	}
	if t.Name == "" {
		return NewValidationError("name", "required")
	}
	return nil
}
