package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/domain"
	"github.com/mediagrid/timestore/pkg/ctxutil"
)

// CreateSource registers a new source.
func (s *Service) CreateSource(ctx context.Context, in CreateSourceInput) (domain.Source, error) {
	src := s.buildSource(ctx, in)
	if err := src.Validate(); err != nil {
		return domain.Source{}, err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.sources.Create(ctx, src); err != nil {
			return err
		}
		if len(src.Collection) > 0 {
			return s.sources.ReplaceCollection(ctx, src.ID, src.Collection)
		}
		return nil
	})
	if err != nil {
		return domain.Source{}, fmt.Errorf("create source: %w", err)
	}

	s.publish(ctx, domain.EventSourceCreated, &src.ID, nil, src)
	return src, nil
}

// CreateSources bulk-creates sources in atomic chunks, reporting per-item
// outcomes. A failing chunk does not roll back other chunks.
func (s *Service) CreateSources(ctx context.Context, ins []CreateSourceInput) ([]BatchItemResult, error) {
	if len(ins) > s.cfg.MaxBatchItems {
		return nil, domain.NewValidationError("items", fmt.Sprintf("batch exceeds %d items", s.cfg.MaxBatchItems))
	}

	results := make([]BatchItemResult, len(ins))
	var (
		valid   []domain.Source
		indexes []int
	)
	for i, in := range ins {
		src := s.buildSource(ctx, in)
		results[i] = BatchItemResult{Index: i, ID: src.ID.String()}
		if err := src.Validate(); err != nil {
			results[i].Err = err
			continue
		}
		valid = append(valid, src)
		indexes = append(indexes, i)
	}

	for start := 0; start < len(valid); start += s.cfg.BatchChunkSize {
		end := start + s.cfg.BatchChunkSize
		if end > len(valid) {
			end = len(valid)
		}
		chunk := valid[start:end]

		if err := s.sources.CreateBatch(ctx, chunk); err != nil {
			s.log.Warn("source batch chunk failed", "size", len(chunk), "error", err)
			for _, idx := range indexes[start:end] {
				results[idx].Err = err
			}
			continue
		}
		for _, src := range chunk {
			s.publish(ctx, domain.EventSourceCreated, &src.ID, nil, src)
		}
	}

	return results, nil
}

// GetSource returns a source by id. includeDeleted bypasses the tombstone
// predicate for audit reads.
func (s *Service) GetSource(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.Source, error) {
	if includeDeleted {
		return s.sources.GetByIDAny(ctx, id)
	}
	return s.sources.GetByID(ctx, id)
}

// ListSources returns sources matching the filter.
func (s *Service) ListSources(ctx context.Context, f domain.SourceFilter) ([]domain.Source, error) {
	f.Limit = clampLimit(f.Limit, s.cfg.MaxPageLimit, s.cfg.DefaultPageLimit)
	return s.sources.List(ctx, f)
}

// UpdateSource applies partial updates.
func (s *Service) UpdateSource(ctx context.Context, id uuid.UUID, params domain.SourceUpdateParams) (domain.Source, error) {
	src, err := s.sources.Update(ctx, id, params, actor(ctx))
	if err != nil {
		return domain.Source{}, err
	}

	s.publish(ctx, domain.EventSourceUpdated, &src.ID, nil, src)
	return src, nil
}

// SetSourceCollection replaces the member list of a multi source.
func (s *Service) SetSourceCollection(ctx context.Context, id uuid.UUID, memberIDs []uuid.UUID) error {
	src, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if src.Format != domain.ContentFormatMulti {
		return domain.NewValidationError("format", "collection membership requires a multi source")
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.sources.ReplaceCollection(ctx, id, memberIDs)
	})
}

// DeleteSource soft-deletes a source. A source with live flows cannot be
// deleted; dependents must go first.
func (s *Service) DeleteSource(ctx context.Context, id uuid.UUID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		active, err := s.flows.CountActiveBySource(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.NewReferentialIntegrityError("source", id, "flows")
		}
		return s.sources.SoftDelete(ctx, id, actor(ctx))
	})
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}

	s.publish(ctx, domain.EventSourceDeleted, &id, nil, nil)
	return nil
}

func (s *Service) buildSource(ctx context.Context, in CreateSourceInput) domain.Source {
	ts := now()
	who := actor(ctx)
	return domain.Source{
		ID:          uuid.New(),
		Format:      in.Format,
		Label:       in.Label,
		Description: in.Description,
		Collection:  in.Collection,
		CreatedBy:   who,
		UpdatedBy:   who,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

func (s *Service) publish(ctx context.Context, t domain.EventType, sourceID, flowID *uuid.UUID, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, domain.Event{
		Type:          t,
		Timestamp:     now(),
		CorrelationID: ctxutil.RequestIDFromCtx(ctx),
		SourceID:      sourceID,
		FlowID:        flowID,
		Payload:       payload,
	})
}

func actor(ctx context.Context) string {
	a, _ := ctxutil.ActorFromCtx(ctx)
	return a
}
