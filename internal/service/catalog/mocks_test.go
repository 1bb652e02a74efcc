package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/domain"
)

// ===========================================================================
// Manual mocks (moq-style with func fields)
// ===========================================================================

type mockSourceRepo struct {
	CreateFunc            func(ctx context.Context, s domain.Source) (domain.Source, error)
	CreateBatchFunc       func(ctx context.Context, sources []domain.Source) error
	GetByIDFunc           func(ctx context.Context, id uuid.UUID) (domain.Source, error)
	GetByIDAnyFunc        func(ctx context.Context, id uuid.UUID) (domain.Source, error)
	ListFunc              func(ctx context.Context, f domain.SourceFilter) ([]domain.Source, error)
	UpdateFunc            func(ctx context.Context, id uuid.UUID, params domain.SourceUpdateParams, actor string) (domain.Source, error)
	SoftDeleteFunc        func(ctx context.Context, id uuid.UUID, actor string) error
	ReplaceCollectionFunc func(ctx context.Context, collectionID uuid.UUID, memberIDs []uuid.UUID) error
}

func (m *mockSourceRepo) Create(ctx context.Context, s domain.Source) (domain.Source, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, s)
	}
	return s, nil
}

func (m *mockSourceRepo) CreateBatch(ctx context.Context, sources []domain.Source) error {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, sources)
	}
	return nil
}

func (m *mockSourceRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Source, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return domain.Source{ID: id, Format: domain.ContentFormatVideo}, nil
}

func (m *mockSourceRepo) GetByIDAny(ctx context.Context, id uuid.UUID) (domain.Source, error) {
	if m.GetByIDAnyFunc != nil {
		return m.GetByIDAnyFunc(ctx, id)
	}
	return domain.Source{ID: id, Format: domain.ContentFormatVideo}, nil
}

func (m *mockSourceRepo) List(ctx context.Context, f domain.SourceFilter) ([]domain.Source, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return []domain.Source{}, nil
}

func (m *mockSourceRepo) Update(ctx context.Context, id uuid.UUID, params domain.SourceUpdateParams, actor string) (domain.Source, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, params, actor)
	}
	return domain.Source{ID: id}, nil
}

func (m *mockSourceRepo) SoftDelete(ctx context.Context, id uuid.UUID, actor string) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id, actor)
	}
	return nil
}

func (m *mockSourceRepo) ReplaceCollection(ctx context.Context, collectionID uuid.UUID, memberIDs []uuid.UUID) error {
	if m.ReplaceCollectionFunc != nil {
		return m.ReplaceCollectionFunc(ctx, collectionID, memberIDs)
	}
	return nil
}

type mockFlowRepo struct {
	CreateFunc              func(ctx context.Context, f domain.Flow) (domain.Flow, error)
	CreateBatchFunc         func(ctx context.Context, flows []domain.Flow) error
	GetByIDFunc             func(ctx context.Context, id uuid.UUID) (domain.Flow, error)
	GetByIDAnyFunc          func(ctx context.Context, id uuid.UUID) (domain.Flow, error)
	ListFunc                func(ctx context.Context, f domain.FlowFilter) ([]domain.Flow, error)
	UpdateFunc              func(ctx context.Context, id uuid.UUID, params domain.FlowUpdateParams, actor string) (domain.Flow, error)
	SoftDeleteFunc          func(ctx context.Context, id uuid.UUID, actor string) error
	CountActiveBySourceFunc func(ctx context.Context, sourceID uuid.UUID) (int, error)
	ReplaceCollectionFunc   func(ctx context.Context, collectionID uuid.UUID, memberIDs []uuid.UUID) error
}

func (m *mockFlowRepo) Create(ctx context.Context, f domain.Flow) (domain.Flow, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, f)
	}
	return f, nil
}

func (m *mockFlowRepo) CreateBatch(ctx context.Context, flows []domain.Flow) error {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, flows)
	}
	return nil
}

func (m *mockFlowRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Flow, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return domain.Flow{ID: id, SourceID: uuid.New(), Format: domain.ContentFormatVideo}, nil
}

func (m *mockFlowRepo) GetByIDAny(ctx context.Context, id uuid.UUID) (domain.Flow, error) {
	if m.GetByIDAnyFunc != nil {
		return m.GetByIDAnyFunc(ctx, id)
	}
	return domain.Flow{ID: id}, nil
}

func (m *mockFlowRepo) List(ctx context.Context, f domain.FlowFilter) ([]domain.Flow, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return []domain.Flow{}, nil
}

func (m *mockFlowRepo) Update(ctx context.Context, id uuid.UUID, params domain.FlowUpdateParams, actor string) (domain.Flow, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, params, actor)
	}
	return domain.Flow{ID: id}, nil
}

func (m *mockFlowRepo) SoftDelete(ctx context.Context, id uuid.UUID, actor string) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id, actor)
	}
	return nil
}

func (m *mockFlowRepo) CountActiveBySource(ctx context.Context, sourceID uuid.UUID) (int, error) {
	if m.CountActiveBySourceFunc != nil {
		return m.CountActiveBySourceFunc(ctx, sourceID)
	}
	return 0, nil
}

func (m *mockFlowRepo) ReplaceCollection(ctx context.Context, collectionID uuid.UUID, memberIDs []uuid.UUID) error {
	if m.ReplaceCollectionFunc != nil {
		return m.ReplaceCollectionFunc(ctx, collectionID, memberIDs)
	}
	return nil
}

type mockSegmentRepo struct {
	CreateFunc            func(ctx context.Context, s domain.Segment) (domain.Segment, error)
	GetByIDFunc           func(ctx context.Context, id uuid.UUID) (domain.Segment, error)
	ListByRangeFunc       func(ctx context.Context, flowID uuid.UUID, rng domain.TimeRange, q domain.SegmentQuery) ([]domain.Segment, string, error)
	CountActiveByFlowFunc func(ctx context.Context, flowID uuid.UUID) (int, error)
	SoftDeleteFunc        func(ctx context.Context, id uuid.UUID, actor string) (bool, error)
}

func (m *mockSegmentRepo) Create(ctx context.Context, s domain.Segment) (domain.Segment, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, s)
	}
	return s, nil
}

func (m *mockSegmentRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Segment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return domain.Segment{ID: id}, nil
}

func (m *mockSegmentRepo) ListByRange(ctx context.Context, flowID uuid.UUID, rng domain.TimeRange, q domain.SegmentQuery) ([]domain.Segment, string, error) {
	if m.ListByRangeFunc != nil {
		return m.ListByRangeFunc(ctx, flowID, rng, q)
	}
	return []domain.Segment{}, "", nil
}

func (m *mockSegmentRepo) CountActiveByFlow(ctx context.Context, flowID uuid.UUID) (int, error) {
	if m.CountActiveByFlowFunc != nil {
		return m.CountActiveByFlowFunc(ctx, flowID)
	}
	return 0, nil
}

func (m *mockSegmentRepo) SoftDelete(ctx context.Context, id uuid.UUID, actor string) (bool, error) {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id, actor)
	}
	return true, nil
}

type mockObjectRepo struct {
	UpsertFunc  func(ctx context.Context, o domain.Object) (domain.Object, error)
	GetByIDFunc func(ctx context.Context, id string) (domain.Object, error)
	TouchFunc   func(ctx context.Context, id string, now time.Time) (domain.Object, error)
	DeleteFunc  func(ctx context.Context, id string) error
}

func (m *mockObjectRepo) Upsert(ctx context.Context, o domain.Object) (domain.Object, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, o)
	}
	return o, nil
}

func (m *mockObjectRepo) GetByID(ctx context.Context, id string) (domain.Object, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return domain.Object{ID: id}, nil
}

func (m *mockObjectRepo) Touch(ctx context.Context, id string, now time.Time) (domain.Object, error) {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, id, now)
	}
	return domain.Object{ID: id}, nil
}

func (m *mockObjectRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

type mockTagRepo struct {
	UpsertFunc         func(ctx context.Context, t domain.Tag) (domain.Tag, error)
	ListForEntityFunc  func(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.Tag, error)
	DeleteFunc         func(ctx context.Context, entityType domain.EntityType, entityID, name string) error
	FilterByValueFunc  func(ctx context.Context, entityType domain.EntityType, name, value string) ([]string, error)
	FilterByExistsFunc func(ctx context.Context, entityType domain.EntityType, name string, exists bool) ([]string, error)
}

func (m *mockTagRepo) Upsert(ctx context.Context, t domain.Tag) (domain.Tag, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, t)
	}
	return t, nil
}

func (m *mockTagRepo) ListForEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.Tag, error) {
	if m.ListForEntityFunc != nil {
		return m.ListForEntityFunc(ctx, entityType, entityID)
	}
	return []domain.Tag{}, nil
}

func (m *mockTagRepo) Delete(ctx context.Context, entityType domain.EntityType, entityID, name string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, entityType, entityID, name)
	}
	return nil
}

func (m *mockTagRepo) FilterByValue(ctx context.Context, entityType domain.EntityType, name, value string) ([]string, error) {
	if m.FilterByValueFunc != nil {
		return m.FilterByValueFunc(ctx, entityType, name, value)
	}
	return []string{}, nil
}

func (m *mockTagRepo) FilterByExists(ctx context.Context, entityType domain.EntityType, name string, exists bool) ([]string, error) {
	if m.FilterByExistsFunc != nil {
		return m.FilterByExistsFunc(ctx, entityType, name, exists)
	}
	return []string{}, nil
}

type mockReferenceRepo struct {
	IncrementFunc      func(ctx context.Context, objectID string, flowID uuid.UUID) error
	DecrementFunc      func(ctx context.Context, objectID string, flowID uuid.UUID) error
	TotalForObjectFunc func(ctx context.Context, objectID string) (int, error)
}

func (m *mockReferenceRepo) Increment(ctx context.Context, objectID string, flowID uuid.UUID) error {
	if m.IncrementFunc != nil {
		return m.IncrementFunc(ctx, objectID, flowID)
	}
	return nil
}

func (m *mockReferenceRepo) Decrement(ctx context.Context, objectID string, flowID uuid.UUID) error {
	if m.DecrementFunc != nil {
		return m.DecrementFunc(ctx, objectID, flowID)
	}
	return nil
}

func (m *mockReferenceRepo) TotalForObject(ctx context.Context, objectID string) (int, error) {
	if m.TotalForObjectFunc != nil {
		return m.TotalForObjectFunc(ctx, objectID)
	}
	return 1, nil
}

// mockTxManager runs the function directly, without a transaction.
type mockTxManager struct{}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// mockPublisher records published events for assertions.
type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockPublisher) Publish(_ context.Context, e domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *mockPublisher) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.events))
	copy(out, m.events)
	return out
}

type mockObjectStore struct {
	IssueUploadHandleFunc   func(ctx context.Context, objectKey string) (string, error)
	IssueDownloadHandleFunc func(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
	DeleteFunc              func(ctx context.Context, objectKey string) error
}

func (m *mockObjectStore) IssueUploadHandle(ctx context.Context, objectKey string) (string, error) {
	if m.IssueUploadHandleFunc != nil {
		return m.IssueUploadHandleFunc(ctx, objectKey)
	}
	return "upload://" + objectKey, nil
}

func (m *mockObjectStore) IssueDownloadHandle(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	if m.IssueDownloadHandleFunc != nil {
		return m.IssueDownloadHandleFunc(ctx, objectKey, ttl)
	}
	return "download://" + objectKey, nil
}

func (m *mockObjectStore) Delete(ctx context.Context, objectKey string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, objectKey)
	}
	return nil
}
