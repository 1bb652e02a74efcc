// Package reftracker exposes read and repair operations over the object
// reference counts that govern object lifetime.
package reftracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mediagrid/timestore/internal/domain"
)

type referenceRepo interface {
	TotalForObject(ctx context.Context, objectID string) (int, error)
	ListForObject(ctx context.Context, objectID string) ([]domain.ObjectReference, error)
	Rebuild(ctx context.Context) error
}

type objectRepo interface {
	GetByID(ctx context.Context, id string) (domain.Object, error)
	ListOrphaned(ctx context.Context, limit int) ([]domain.Object, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service answers reference-count queries and repairs drifted counts.
type Service struct {
	log     *slog.Logger
	refs    referenceRepo
	objects objectRepo
	tx      txManager
}

// NewService creates a new reference tracker service.
func NewService(logger *slog.Logger, refs referenceRepo, objects objectRepo, tx txManager) *Service {
	return &Service{
		log:     logger.With("service", "reftracker"),
		refs:    refs,
		objects: objects,
		tx:      tx,
	}
}

// Total returns the object's reference count summed across flows.
func (s *Service) Total(ctx context.Context, objectID string) (int, error) {
	if _, err := s.objects.GetByID(ctx, objectID); err != nil {
		return 0, err
	}
	return s.refs.TotalForObject(ctx, objectID)
}

// IsOrphan reports whether no live segment references the object.
func (s *Service) IsOrphan(ctx context.Context, objectID string) (bool, error) {
	total, err := s.Total(ctx, objectID)
	if err != nil {
		return false, err
	}
	return total == 0, nil
}

// ListReferences returns the per-flow breakdown of an object's references.
func (s *Service) ListReferences(ctx context.Context, objectID string) ([]domain.ObjectReference, error) {
	if _, err := s.objects.GetByID(ctx, objectID); err != nil {
		return nil, err
	}
	return s.refs.ListForObject(ctx, objectID)
}

// ListOrphans returns up to limit objects with no live references.
func (s *Service) ListOrphans(ctx context.Context, limit int) ([]domain.Object, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.objects.ListOrphaned(ctx, limit)
}

// Reconcile recomputes every reference count from the live segments. The
// rebuild runs in one transaction so readers never observe partial counts.
func (s *Service) Reconcile(ctx context.Context) error {
	s.log.Info("reference reconciliation started")

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.refs.Rebuild(ctx)
	})
	if err != nil {
		return fmt.Errorf("reconcile references: %w", err)
	}

	s.log.Info("reference reconciliation finished")
	return nil
}
