package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/domain"
)

// SegmentPage is one page of a range listing. Cursor resumes the listing
// and is empty on the last page.
type SegmentPage struct {
	Segments []domain.Segment
	Cursor   string
}

// CreateSegment registers a time-bounded slice of a flow's media. Unknown
// object ids are registered first; the reference count moves with the
// segment insert in one transaction.
func (s *Service) CreateSegment(ctx context.Context, in CreateSegmentInput) (domain.Segment, error) {
	seg := domain.Segment{
		ID:            uuid.New(),
		FlowID:        in.FlowID,
		ObjectID:      in.ObjectID,
		Range:         in.Range,
		StoragePath:   in.StoragePath,
		SampleOffset:  in.SampleOffset,
		SampleCount:   in.SampleCount,
		KeyFrameCount: in.KeyFrameCount,
		CreatedBy:     actor(ctx),
		CreatedAt:     now(),
	}
	if err := seg.Validate(); err != nil {
		return domain.Segment{}, err
	}

	f, err := s.flows.GetByID(ctx, in.FlowID)
	if err != nil {
		return domain.Segment{}, err
	}
	if f.ReadOnly {
		return domain.Segment{}, fmt.Errorf("flow %s: %w", f.ID, domain.ErrFlowReadOnly)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.objects.Upsert(ctx, domain.Object{
			ID:        in.ObjectID,
			Size:      in.ObjectSize,
			CreatedAt: seg.CreatedAt,
		}); err != nil {
			return err
		}
		if _, err := s.segments.Create(ctx, seg); err != nil {
			return err
		}
		return s.refs.Increment(ctx, in.ObjectID, in.FlowID)
	})
	if err != nil {
		return domain.Segment{}, fmt.Errorf("create segment: %w", err)
	}

	s.publish(ctx, domain.EventSegmentCreated, &f.SourceID, &f.ID, seg)
	return seg, nil
}

// ListSegments returns live segments of a flow overlapping rng in range
// order, one page per call.
func (s *Service) ListSegments(ctx context.Context, flowID uuid.UUID, rng domain.TimeRange, q domain.SegmentQuery) (SegmentPage, error) {
	if _, err := s.flows.GetByID(ctx, flowID); err != nil {
		return SegmentPage{}, err
	}

	q.Limit = clampLimit(q.Limit, s.cfg.MaxPageLimit, s.cfg.DefaultPageLimit)
	segments, cursor, err := s.segments.ListByRange(ctx, flowID, rng, q)
	if err != nil {
		return SegmentPage{}, err
	}

	return SegmentPage{Segments: segments, Cursor: cursor}, nil
}

// GetSegment returns a segment by id.
func (s *Service) GetSegment(ctx context.Context, id uuid.UUID) (domain.Segment, error) {
	return s.segments.GetByID(ctx, id)
}

// DeleteSegment soft-deletes one segment, decrements the object's reference
// count and reclaims the object when it becomes an orphan. Deleting an
// already deleted segment is a no-op.
func (s *Service) DeleteSegment(ctx context.Context, id uuid.UUID) error {
	seg, err := s.segments.GetByID(ctx, id)
	if err != nil {
		return err
	}

	f, err := s.flows.GetByID(ctx, seg.FlowID)
	if err != nil {
		return err
	}
	if f.ReadOnly {
		return fmt.Errorf("flow %s: %w", f.ID, domain.ErrFlowReadOnly)
	}

	var orphaned bool
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		deleted, err := s.segments.SoftDelete(ctx, id, actor(ctx))
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		if err := s.refs.Decrement(ctx, seg.ObjectID, seg.FlowID); err != nil {
			return err
		}
		total, err := s.refs.TotalForObject(ctx, seg.ObjectID)
		if err != nil {
			return err
		}
		if total == 0 {
			orphaned = true
			return s.objects.Delete(ctx, seg.ObjectID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete segment: %w", err)
	}

	if orphaned && s.store != nil {
		// Byte cleanup is best effort; a missed delete is caught by
		// reconciliation, not by failing the catalog call.
		if err := s.store.Delete(ctx, seg.ObjectID); err != nil {
			s.log.Warn("orphan object store delete failed", "object_id", seg.ObjectID, "error", err)
		}
	}

	s.publish(ctx, domain.EventSegmentDeleted, &f.SourceID, &f.ID, seg)
	return nil
}
