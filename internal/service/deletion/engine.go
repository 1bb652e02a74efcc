// Package deletion implements bulk segment deletion over flow time ranges.
// Small requests run synchronously; large ones are queued to a worker pool
// and tracked through a DeletionRequest state machine.
package deletion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mediagrid/timestore/internal/config"
	"github.com/mediagrid/timestore/internal/domain"
	"github.com/mediagrid/timestore/pkg/ctxutil"
)

type requestRepo interface {
	Create(ctx context.Context, req domain.DeletionRequest) (domain.DeletionRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.DeletionRequest, error)
	ListActive(ctx context.Context) ([]domain.DeletionRequest, error)
	Transition(ctx context.Context, id uuid.UUID, from, to domain.DeletionStatus, errMsg *string) error
}

type segmentRepo interface {
	ListByRange(ctx context.Context, flowID uuid.UUID, rng domain.TimeRange, q domain.SegmentQuery) ([]domain.Segment, string, error)
	CountInRange(ctx context.Context, flowID uuid.UUID, rng domain.TimeRange) (int, error)
	CountActiveByFlow(ctx context.Context, flowID uuid.UUID) (int, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actor string) (bool, error)
}

type flowRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Flow, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actor string) error
}

type referenceRepo interface {
	Decrement(ctx context.Context, objectID string, flowID uuid.UUID) error
	TotalForObject(ctx context.Context, objectID string) (int, error)
}

type objectRepo interface {
	Delete(ctx context.Context, id string) error
}

type objectStore interface {
	Delete(ctx context.Context, objectKey string) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type eventPublisher interface {
	Publish(ctx context.Context, e domain.Event)
}

// Engine executes deletion requests. The sync threshold decides inline vs
// queued execution and is mutable at runtime.
type Engine struct {
	log      *slog.Logger
	requests requestRepo
	segments segmentRepo
	flows    flowRepo
	refs     referenceRepo
	objects  objectRepo
	store    objectStore
	tx       txManager
	events   eventPublisher
	clock    clockwork.Clock
	cfg      config.DeletionConfig

	threshold atomic.Int64
	queue     chan uuid.UUID

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewEngine creates a deletion engine. Call Start to launch the worker pool.
func NewEngine(
	logger *slog.Logger,
	requests requestRepo,
	segments segmentRepo,
	flows flowRepo,
	refs referenceRepo,
	objects objectRepo,
	store objectStore,
	tx txManager,
	events eventPublisher,
	clock clockwork.Clock,
	cfg config.DeletionConfig,
) *Engine {
	e := &Engine{
		log:      logger.With("service", "deletion"),
		requests: requests,
		segments: segments,
		flows:    flows,
		refs:     refs,
		objects:  objects,
		store:    store,
		tx:       tx,
		events:   events,
		clock:    clock,
		cfg:      cfg,
		queue:    make(chan uuid.UUID, cfg.QueueSize),
	}
	e.threshold.Store(int64(cfg.SyncThreshold))
	return e
}

// Threshold returns the current sync/async cutoff.
func (e *Engine) Threshold() int {
	return int(e.threshold.Load())
}

// SetThreshold replaces the sync/async cutoff for subsequent submissions.
func (e *Engine) SetThreshold(n int) error {
	if n < 0 {
		return domain.NewValidationError("threshold", "must not be negative")
	}
	e.threshold.Store(int64(n))
	e.log.Info("sync threshold updated", "threshold", n)
	return nil
}

// Start launches the background worker pool.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true

	ctx, e.cancel = context.WithCancel(ctx)
	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx)
	}
	if e.cfg.RequeueInterval > 0 {
		e.wg.Add(1)
		go e.requeueLoop(ctx)
	}
	e.log.Info("deletion workers started", "workers", e.cfg.Workers)
}

// Stop halts the worker pool and waits for in-flight tasks. Requests left
// pending in the queue are picked up by Resume on the next start.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
	e.log.Info("deletion workers stopped")
}

func (e *Engine) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-e.queue:
			req, err := e.requests.GetByID(ctx, id)
			if err != nil {
				e.log.Error("deletion request load failed", "request_id", id, "error", err)
				continue
			}
			if err := e.process(ctx, req); err != nil {
				e.log.Error("deletion request failed", "request_id", id, "error", err)
			}
		}
	}
}

// requeueLoop periodically sweeps requests still pending back onto the
// queue, so a submission deferred on a full queue runs without waiting for
// a restart.
func (e *Engine) requeueLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := e.clock.NewTicker(e.cfg.RequeueInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.requeuePending(ctx)
		}
	}
}

func (e *Engine) requeuePending(ctx context.Context) {
	active, err := e.requests.ListActive(ctx)
	if err != nil {
		e.log.Error("pending deletion sweep failed", "error", err)
		return
	}

	requeued := 0
	for _, req := range active {
		// In-progress requests already have a worker; re-enqueueing a
		// pending one twice is harmless because the claim transition
		// rejects the second.
		if req.Status != domain.DeletionStatusPending {
			continue
		}
		select {
		case e.queue <- req.ID:
			requeued++
		default:
			e.log.Warn("deletion queue full during sweep", "requeued", requeued)
			return
		}
	}
	if requeued > 0 {
		e.log.Info("pending deletion requests requeued", "count", requeued)
	}
}

// Submit registers a deletion request for the flow's segments overlapping
// rng. At or below the threshold it completes before returning; above it the
// request is queued and returned in pending state.
func (e *Engine) Submit(ctx context.Context, flowID uuid.UUID, rng domain.TimeRange, deleteFlow bool) (domain.DeletionRequest, error) {
	f, err := e.flows.GetByID(ctx, flowID)
	if err != nil {
		return domain.DeletionRequest{}, err
	}
	if f.ReadOnly {
		return domain.DeletionRequest{}, fmt.Errorf("flow %s: %w", flowID, domain.ErrFlowReadOnly)
	}

	count, err := e.segments.CountInRange(ctx, flowID, rng)
	if err != nil {
		return domain.DeletionRequest{}, err
	}

	who, _ := ctxutil.ActorFromCtx(ctx)
	now := e.clock.Now().UTC()
	req := domain.DeletionRequest{
		ID:         uuid.New(),
		FlowID:     flowID,
		Range:      rng,
		Status:     domain.DeletionStatusPending,
		DeleteFlow: deleteFlow,
		CreatedBy:  who,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	req, err = e.requests.Create(ctx, req)
	if err != nil {
		return domain.DeletionRequest{}, fmt.Errorf("create deletion request: %w", err)
	}

	if count <= e.Threshold() {
		if err := e.process(ctx, req); err != nil {
			return domain.DeletionRequest{}, err
		}
		return e.requests.GetByID(ctx, req.ID)
	}

	select {
	case e.queue <- req.ID:
	default:
		// Queue full. The request stays pending until the periodic sweep
		// or Resume picks it up.
		e.log.Warn("deletion queue full, request deferred", "request_id", req.ID)
	}

	return req, nil
}

// Status returns the request's current state.
func (e *Engine) Status(ctx context.Context, id uuid.UUID) (domain.DeletionRequest, error) {
	return e.requests.GetByID(ctx, id)
}

// Resume re-enqueues non-terminal requests found in storage. Call once on
// startup to recover work lost to a crash or queue overflow.
func (e *Engine) Resume(ctx context.Context) error {
	active, err := e.requests.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active deletion requests: %w", err)
	}

	for _, req := range active {
		select {
		case e.queue <- req.ID:
		default:
			e.log.Warn("deletion queue full during resume", "request_id", req.ID)
		}
	}
	if len(active) > 0 {
		e.log.Info("deletion requests resumed", "count", len(active))
	}
	return nil
}

// process drives one request to a terminal state. Safe to call twice for the
// same request: the pending to in_progress transition is the claim, and
// soft deletes are idempotent.
func (e *Engine) process(ctx context.Context, req domain.DeletionRequest) error {
	if req.Status == domain.DeletionStatusPending {
		err := e.requests.Transition(ctx, req.ID, domain.DeletionStatusPending, domain.DeletionStatusInProgress, nil)
		if errors.Is(err, domain.ErrStorageConflict) {
			// Another worker claimed it.
			return nil
		}
		if err != nil {
			return fmt.Errorf("claim deletion request: %w", err)
		}
	}

	if err := e.deleteRange(ctx, req); err != nil {
		msg := err.Error()
		if terr := e.requests.Transition(ctx, req.ID, domain.DeletionStatusInProgress, domain.DeletionStatusFailed, &msg); terr != nil {
			e.log.Error("deletion failure not recorded", "request_id", req.ID, "error", terr)
		}
		e.publishFinished(ctx, req, domain.DeletionStatusFailed)
		return err
	}

	if err := e.requests.Transition(ctx, req.ID, domain.DeletionStatusInProgress, domain.DeletionStatusCompleted, nil); err != nil {
		return fmt.Errorf("complete deletion request: %w", err)
	}
	e.publishFinished(ctx, req, domain.DeletionStatusCompleted)
	return nil
}

// deleteRange soft-deletes the request's segments page by page, reclaiming
// objects as they orphan. Deleted rows leave the live set, so re-reading the
// first page always advances.
func (e *Engine) deleteRange(ctx context.Context, req domain.DeletionRequest) error {
	for {
		page, _, err := e.segments.ListByRange(ctx, req.FlowID, req.Range, domain.SegmentQuery{Limit: e.cfg.PageSize})
		if err != nil {
			return fmt.Errorf("list segments: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for _, seg := range page {
			if err := e.deleteSegment(ctx, seg, req.CreatedBy); err != nil {
				return fmt.Errorf("delete segment %s: %w", seg.ID, err)
			}
		}
	}

	if req.DeleteFlow {
		return e.deleteFlow(ctx, req)
	}
	return nil
}

func (e *Engine) deleteSegment(ctx context.Context, seg domain.Segment, actor string) error {
	var orphaned bool
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		deleted, err := e.segments.SoftDelete(ctx, seg.ID, actor)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		if err := e.refs.Decrement(ctx, seg.ObjectID, seg.FlowID); err != nil {
			return err
		}
		total, err := e.refs.TotalForObject(ctx, seg.ObjectID)
		if err != nil {
			return err
		}
		if total == 0 {
			orphaned = true
			return e.objects.Delete(ctx, seg.ObjectID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if orphaned && e.store != nil {
		if err := e.store.Delete(ctx, seg.ObjectID); err != nil {
			e.log.Warn("orphan object store delete failed", "object_id", seg.ObjectID, "error", err)
		}
	}
	return nil
}

func (e *Engine) deleteFlow(ctx context.Context, req domain.DeletionRequest) error {
	return e.tx.RunInTx(ctx, func(ctx context.Context) error {
		live, err := e.segments.CountActiveByFlow(ctx, req.FlowID)
		if err != nil {
			return err
		}
		if live > 0 {
			// Segments outside the requested range survived; the flow row
			// must stay until they are gone too.
			return domain.NewReferentialIntegrityError("flow", req.FlowID, "segments")
		}
		return e.flows.SoftDelete(ctx, req.FlowID, req.CreatedBy)
	})
}

func (e *Engine) publishFinished(ctx context.Context, req domain.DeletionRequest, status domain.DeletionStatus) {
	if e.events == nil {
		return
	}
	req.Status = status
	e.events.Publish(ctx, domain.Event{
		Type:          domain.EventDeletionFinished,
		Timestamp:     e.clock.Now().UTC(),
		CorrelationID: ctxutil.RequestIDFromCtx(ctx),
		FlowID:        &req.FlowID,
		Payload:       req,
	})
}
