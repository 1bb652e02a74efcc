package catalog

import (
	"context"

	"github.com/mediagrid/timestore/internal/domain"
)

// SetTag upserts one tag. The created audit pair is preserved on overwrite.
func (s *Service) SetTag(ctx context.Context, entityType domain.EntityType, entityID, name, value string) (domain.Tag, error) {
	who := actor(ctx)
	t := domain.Tag{
		EntityType: entityType,
		EntityID:   entityID,
		Name:       name,
		Value:      value,
		CreatedBy:  who,
		UpdatedBy:  who,
	}
	if err := t.Validate(); err != nil {
		return domain.Tag{}, err
	}

	return s.tags.Upsert(ctx, t)
}

// GetTags returns the entity's tags as a name to value map.
func (s *Service) GetTags(ctx context.Context, entityType domain.EntityType, entityID string) (map[string]string, error) {
	if !entityType.IsValid() {
		return nil, domain.NewValidationError("entity_type", "must be one of source, flow, segment")
	}

	tags, err := s.tags.ListForEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[t.Name] = t.Value
	}
	return m, nil
}

// DeleteTag removes one tag. Absent tags are not an error.
func (s *Service) DeleteTag(ctx context.Context, entityType domain.EntityType, entityID, name string) error {
	if !entityType.IsValid() {
		return domain.NewValidationError("entity_type", "must be one of source, flow, segment")
	}
	return s.tags.Delete(ctx, entityType, entityID, name)
}

// FilterByTag returns ids of entities whose current tag row matches
// name=value exactly.
func (s *Service) FilterByTag(ctx context.Context, entityType domain.EntityType, name, value string) ([]string, error) {
	if !entityType.IsValid() {
		return nil, domain.NewValidationError("entity_type", "must be one of source, flow, segment")
	}
	return s.tags.FilterByValue(ctx, entityType, name, value)
}

// FilterByTagExists returns ids of entities that have, or with exists=false
// lack, a tag with the given name. Callers AND multiple predicates by
// intersecting the returned sets.
func (s *Service) FilterByTagExists(ctx context.Context, entityType domain.EntityType, name string, exists bool) ([]string, error) {
	if !entityType.IsValid() {
		return nil, domain.NewValidationError("entity_type", "must be one of source, flow, segment")
	}
	return s.tags.FilterByExists(ctx, entityType, name, exists)
}
