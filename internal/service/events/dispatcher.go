// Package events delivers catalog mutation events to webhook subscribers.
// Publishing is fire and forget: a bounded queue decouples catalog calls
// from delivery, and delivery failures never propagate back.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/config"
	"github.com/mediagrid/timestore/internal/domain"
	"github.com/mediagrid/timestore/pkg/ctxutil"
)

type subscriptionRepo interface {
	Create(ctx context.Context, s domain.Subscription) (domain.Subscription, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error)
	List(ctx context.Context) ([]domain.Subscription, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Sender delivers one event to one subscriber endpoint.
type Sender interface {
	Send(ctx context.Context, url string, e domain.Event) error
}

// Dispatcher fans catalog events out to matching webhook subscriptions.
type Dispatcher struct {
	log    *slog.Logger
	subs   subscriptionRepo
	sender Sender
	cfg    config.WebhookConfig

	queue chan domain.Event

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewDispatcher creates an event dispatcher. Call Start to launch delivery
// workers.
func NewDispatcher(logger *slog.Logger, subs subscriptionRepo, sender Sender, cfg config.WebhookConfig) *Dispatcher {
	return &Dispatcher{
		log:    logger.With("service", "events"),
		subs:   subs,
		sender: sender,
		cfg:    cfg,
		queue:  make(chan domain.Event, cfg.QueueSize),
	}
}

// Start launches the delivery worker pool.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	d.log.Info("event workers started", "workers", d.cfg.Workers)
}

// Stop halts delivery and waits for in-flight sends. Queued events not yet
// picked up are dropped; delivery is at-most-once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info("event workers stopped")
}

// Publish enqueues an event for delivery. Never blocks: when the queue is
// full the event is dropped and logged.
func (d *Dispatcher) Publish(_ context.Context, e domain.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	select {
	case d.queue <- e:
	default:
		d.log.Warn("event queue full, event dropped", "event_type", e.Type)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.queue:
			d.deliver(ctx, e)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e domain.Event) {
	subs, err := d.subs.List(ctx)
	if err != nil {
		d.log.Error("subscription load failed, event dropped", "event_type", e.Type, "error", err)
		return
	}

	for _, sub := range subs {
		if !sub.Matches(e) {
			continue
		}
		if err := d.sender.Send(ctx, sub.URL, e); err != nil {
			d.log.Warn("webhook delivery failed",
				"subscription_id", sub.ID, "url", sub.URL, "event_type", e.Type, "error", err)
		}
	}
}

// ---------------------------------------------------------------------------
// Subscription management
// ---------------------------------------------------------------------------

// SubscribeInput carries the fields of a new webhook subscription.
type SubscribeInput struct {
	URL        string
	EventTypes []domain.EventType
	SourceIDs  []uuid.UUID
	FlowIDs    []uuid.UUID
}

// Subscribe registers a webhook endpoint.
func (d *Dispatcher) Subscribe(ctx context.Context, in SubscribeInput) (domain.Subscription, error) {
	who, _ := ctxutil.ActorFromCtx(ctx)
	sub := domain.Subscription{
		ID:         uuid.New(),
		URL:        in.URL,
		EventTypes: in.EventTypes,
		SourceIDs:  in.SourceIDs,
		FlowIDs:    in.FlowIDs,
		CreatedBy:  who,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := sub.Validate(); err != nil {
		return domain.Subscription{}, err
	}

	created, err := d.subs.Create(ctx, sub)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	return created, nil
}

// GetSubscription returns one subscription by id.
func (d *Dispatcher) GetSubscription(ctx context.Context, id uuid.UUID) (domain.Subscription, error) {
	return d.subs.GetByID(ctx, id)
}

// ListSubscriptions returns all registered subscriptions.
func (d *Dispatcher) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	return d.subs.List(ctx)
}

// Unsubscribe removes a subscription.
func (d *Dispatcher) Unsubscribe(ctx context.Context, id uuid.UUID) error {
	return d.subs.Delete(ctx, id)
}
