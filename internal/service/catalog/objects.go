package catalog

import (
	"context"
	"fmt"

	"github.com/mediagrid/timestore/internal/domain"
)

// RegisterObject records an object key in the catalog. Registering a known
// key is idempotent.
func (s *Service) RegisterObject(ctx context.Context, in RegisterObjectInput) (domain.Object, error) {
	o := domain.Object{ID: in.ID, Size: in.Size, CreatedAt: now()}
	if err := o.Validate(); err != nil {
		return domain.Object{}, err
	}

	return s.objects.Upsert(ctx, o)
}

// RegisterObjects bulk-registers objects with per-item outcomes. Upserts
// are independently idempotent, so chunking is unnecessary here.
func (s *Service) RegisterObjects(ctx context.Context, ins []RegisterObjectInput) ([]BatchItemResult, error) {
	if len(ins) > s.cfg.MaxBatchItems {
		return nil, domain.NewValidationError("items", fmt.Sprintf("batch exceeds %d items", s.cfg.MaxBatchItems))
	}

	results := make([]BatchItemResult, len(ins))
	for i, in := range ins {
		results[i] = BatchItemResult{Index: i, ID: in.ID}
		if _, err := s.RegisterObject(ctx, in); err != nil {
			results[i].Err = err
		}
	}

	return results, nil
}

// GetObject returns an object by key.
func (s *Service) GetObject(ctx context.Context, id string) (domain.Object, error) {
	return s.objects.GetByID(ctx, id)
}

// IssueUploadHandle returns a handle for writing a new object's bytes.
func (s *Service) IssueUploadHandle(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", domain.NewValidationError("object_id", "required")
	}
	return s.store.IssueUploadHandle(ctx, objectKey)
}

// IssueDownloadHandle returns a time-limited handle for reading an object's
// bytes and records the access on the object row.
func (s *Service) IssueDownloadHandle(ctx context.Context, objectKey string) (string, error) {
	if _, err := s.objects.GetByID(ctx, objectKey); err != nil {
		return "", err
	}

	handle, err := s.store.IssueDownloadHandle(ctx, objectKey, s.storeCfg.DownloadTTL)
	if err != nil {
		return "", fmt.Errorf("issue download handle: %w", err)
	}

	if _, err := s.objects.Touch(ctx, objectKey, now()); err != nil {
		s.log.Warn("object access stats update failed", "object_id", objectKey, "error", err)
	}

	return handle, nil
}
