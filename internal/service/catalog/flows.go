package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/domain"
)

// CreateFlow registers a new flow under an existing live source.
func (s *Service) CreateFlow(ctx context.Context, in CreateFlowInput) (domain.Flow, error) {
	f := s.buildFlow(ctx, in)
	if err := f.Validate(); err != nil {
		return domain.Flow{}, err
	}

	if _, err := s.sources.GetByID(ctx, in.SourceID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Flow{}, domain.NewDanglingReferenceError("source", in.SourceID)
		}
		return domain.Flow{}, err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.flows.Create(ctx, f); err != nil {
			return err
		}
		if len(f.Collection) > 0 {
			return s.flows.ReplaceCollection(ctx, f.ID, f.Collection)
		}
		return nil
	})
	if err != nil {
		// The FK may still fire if the source was deleted between the check
		// and the insert.
		if errors.Is(err, domain.ErrDanglingReference) {
			return domain.Flow{}, domain.NewDanglingReferenceError("source", in.SourceID)
		}
		return domain.Flow{}, fmt.Errorf("create flow: %w", err)
	}

	s.publish(ctx, domain.EventFlowCreated, &f.SourceID, &f.ID, f)
	return f, nil
}

// CreateFlows bulk-creates flows in atomic chunks with per-item outcomes.
func (s *Service) CreateFlows(ctx context.Context, ins []CreateFlowInput) ([]BatchItemResult, error) {
	if len(ins) > s.cfg.MaxBatchItems {
		return nil, domain.NewValidationError("items", fmt.Sprintf("batch exceeds %d items", s.cfg.MaxBatchItems))
	}

	results := make([]BatchItemResult, len(ins))
	var (
		valid   []domain.Flow
		indexes []int
	)
	for i, in := range ins {
		f := s.buildFlow(ctx, in)
		results[i] = BatchItemResult{Index: i, ID: f.ID.String()}
		if err := f.Validate(); err != nil {
			results[i].Err = err
			continue
		}
		valid = append(valid, f)
		indexes = append(indexes, i)
	}

	for start := 0; start < len(valid); start += s.cfg.BatchChunkSize {
		end := start + s.cfg.BatchChunkSize
		if end > len(valid) {
			end = len(valid)
		}
		chunk := valid[start:end]

		if err := s.flows.CreateBatch(ctx, chunk); err != nil {
			s.log.Warn("flow batch chunk failed", "size", len(chunk), "error", err)
			for _, idx := range indexes[start:end] {
				results[idx].Err = err
			}
			continue
		}
		for _, f := range chunk {
			s.publish(ctx, domain.EventFlowCreated, &f.SourceID, &f.ID, f)
		}
	}

	return results, nil
}

// GetFlow returns a flow by id.
func (s *Service) GetFlow(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.Flow, error) {
	if includeDeleted {
		return s.flows.GetByIDAny(ctx, id)
	}
	return s.flows.GetByID(ctx, id)
}

// ListFlows returns flows matching the filter.
func (s *Service) ListFlows(ctx context.Context, f domain.FlowFilter) ([]domain.Flow, error) {
	f.Limit = clampLimit(f.Limit, s.cfg.MaxPageLimit, s.cfg.DefaultPageLimit)
	return s.flows.List(ctx, f)
}

// UpdateFlow applies partial updates, including the read-only toggle.
func (s *Service) UpdateFlow(ctx context.Context, id uuid.UUID, params domain.FlowUpdateParams) (domain.Flow, error) {
	f, err := s.flows.Update(ctx, id, params, actor(ctx))
	if err != nil {
		return domain.Flow{}, err
	}

	s.publish(ctx, domain.EventFlowUpdated, &f.SourceID, &f.ID, f)
	return f, nil
}

// SetFlowCollection replaces the constituent list of a multi flow.
func (s *Service) SetFlowCollection(ctx context.Context, id uuid.UUID, memberIDs []uuid.UUID) error {
	f, err := s.flows.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if f.Format != domain.ContentFormatMulti {
		return domain.NewValidationError("format", "collection membership requires a multi flow")
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.flows.ReplaceCollection(ctx, id, memberIDs)
	})
}

// DeleteFlow soft-deletes a flow that has no live segments. Flows with
// segments are deleted through the deletion engine, which removes the
// segment range first.
func (s *Service) DeleteFlow(ctx context.Context, id uuid.UUID) error {
	f, err := s.flows.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if f.ReadOnly {
		return fmt.Errorf("flow %s: %w", id, domain.ErrFlowReadOnly)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		live, err := s.segments.CountActiveByFlow(ctx, id)
		if err != nil {
			return err
		}
		if live > 0 {
			return domain.NewReferentialIntegrityError("flow", id, "segments")
		}
		return s.flows.SoftDelete(ctx, id, actor(ctx))
	})
	if err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}

	s.publish(ctx, domain.EventFlowDeleted, &f.SourceID, &id, nil)
	return nil
}

func (s *Service) buildFlow(ctx context.Context, in CreateFlowInput) domain.Flow {
	ts := now()
	who := actor(ctx)
	return domain.Flow{
		ID:          uuid.New(),
		SourceID:    in.SourceID,
		Format:      in.Format,
		Codec:       in.Codec,
		Container:   in.Container,
		Label:       in.Label,
		Description: in.Description,
		ReadOnly:    in.ReadOnly,
		Video:       in.Video,
		Audio:       in.Audio,
		Image:       in.Image,
		Data:        in.Data,
		Collection:  in.Collection,
		CreatedBy:   who,
		UpdatedBy:   who,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}
