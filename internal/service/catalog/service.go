// Package catalog implements the media catalog business logic: CRUD over
// sources, flows, segments and objects, tag annotations, and the invariants
// tying them together.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/config"
	"github.com/mediagrid/timestore/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type sourceRepo interface {
	Create(ctx context.Context, s domain.Source) (domain.Source, error)
	CreateBatch(ctx context.Context, sources []domain.Source) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Source, error)
	GetByIDAny(ctx context.Context, id uuid.UUID) (domain.Source, error)
	List(ctx context.Context, f domain.SourceFilter) ([]domain.Source, error)
	Update(ctx context.Context, id uuid.UUID, params domain.SourceUpdateParams, actor string) (domain.Source, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actor string) error
	ReplaceCollection(ctx context.Context, collectionID uuid.UUID, memberIDs []uuid.UUID) error
}

type flowRepo interface {
	Create(ctx context.Context, f domain.Flow) (domain.Flow, error)
	CreateBatch(ctx context.Context, flows []domain.Flow) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Flow, error)
	GetByIDAny(ctx context.Context, id uuid.UUID) (domain.Flow, error)
	List(ctx context.Context, f domain.FlowFilter) ([]domain.Flow, error)
	Update(ctx context.Context, id uuid.UUID, params domain.FlowUpdateParams, actor string) (domain.Flow, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actor string) error
	CountActiveBySource(ctx context.Context, sourceID uuid.UUID) (int, error)
	ReplaceCollection(ctx context.Context, collectionID uuid.UUID, memberIDs []uuid.UUID) error
}

type segmentRepo interface {
	Create(ctx context.Context, s domain.Segment) (domain.Segment, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Segment, error)
	ListByRange(ctx context.Context, flowID uuid.UUID, rng domain.TimeRange, q domain.SegmentQuery) ([]domain.Segment, string, error)
	CountActiveByFlow(ctx context.Context, flowID uuid.UUID) (int, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actor string) (bool, error)
}

type objectRepo interface {
	Upsert(ctx context.Context, o domain.Object) (domain.Object, error)
	GetByID(ctx context.Context, id string) (domain.Object, error)
	Touch(ctx context.Context, id string, now time.Time) (domain.Object, error)
	Delete(ctx context.Context, id string) error
}

type tagRepo interface {
	Upsert(ctx context.Context, t domain.Tag) (domain.Tag, error)
	ListForEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.Tag, error)
	Delete(ctx context.Context, entityType domain.EntityType, entityID, name string) error
	FilterByValue(ctx context.Context, entityType domain.EntityType, name, value string) ([]string, error)
	FilterByExists(ctx context.Context, entityType domain.EntityType, name string, exists bool) ([]string, error)
}

type referenceRepo interface {
	Increment(ctx context.Context, objectID string, flowID uuid.UUID) error
	Decrement(ctx context.Context, objectID string, flowID uuid.UUID) error
	TotalForObject(ctx context.Context, objectID string) (int, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type eventPublisher interface {
	Publish(ctx context.Context, e domain.Event)
}

// ObjectStore is the port to the byte store. The catalog records storage
// paths and issues handles; it never moves bytes itself.
type ObjectStore interface {
	IssueUploadHandle(ctx context.Context, objectKey string) (string, error)
	IssueDownloadHandle(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, objectKey string) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the catalog business logic.
type Service struct {
	log      *slog.Logger
	sources  sourceRepo
	flows    flowRepo
	segments segmentRepo
	objects  objectRepo
	tags     tagRepo
	refs     referenceRepo
	tx       txManager
	events   eventPublisher
	store    ObjectStore
	cfg      config.CatalogConfig
	storeCfg config.ObjectStoreConfig
}

// NewService creates a new Catalog service.
func NewService(
	logger *slog.Logger,
	sources sourceRepo,
	flows flowRepo,
	segments segmentRepo,
	objects objectRepo,
	tags tagRepo,
	refs referenceRepo,
	tx txManager,
	events eventPublisher,
	store ObjectStore,
	cfg config.CatalogConfig,
	storeCfg config.ObjectStoreConfig,
) *Service {
	return &Service{
		log:      logger.With("service", "catalog"),
		sources:  sources,
		flows:    flows,
		segments: segments,
		objects:  objects,
		tags:     tags,
		refs:     refs,
		tx:       tx,
		events:   events,
		store:    store,
		cfg:      cfg,
		storeCfg: storeCfg,
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// clampLimit bounds a page limit, defaulting from 0 to defaultVal.
func clampLimit(limit, max, defaultVal int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit > max {
		return max
	}
	return limit
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
