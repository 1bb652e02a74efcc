// Package subscription implements the webhook subscription repository using
// PostgreSQL.
package subscription

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/mediagrid/timestore/internal/adapter/postgres"
	"github.com/mediagrid/timestore/internal/domain"
)

// Repo provides subscription persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new subscription repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const subscriptionColumns = `id, url, event_types, source_ids, flow_ids, created_by, created_at`

const insertSubscriptionSQL = `
INSERT INTO webhook_subscriptions (id, url, event_types, source_ids, flow_ids, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const getSubscriptionSQL = `
SELECT ` + subscriptionColumns + `
FROM webhook_subscriptions
WHERE id = $1`

const listSubscriptionsSQL = `
SELECT ` + subscriptionColumns + `
FROM webhook_subscriptions
ORDER BY created_at, id`

const deleteSubscriptionSQL = `
DELETE FROM webhook_subscriptions WHERE id = $1`

// Create registers a subscription.
func (r *Repo) Create(ctx context.Context, s domain.Subscription) (domain.Subscription, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	types := make([]string, len(s.EventTypes))
	for i, et := range s.EventTypes {
		types[i] = string(et)
	}

	_, err := querier.Exec(ctx, insertSubscriptionSQL,
		s.ID, s.URL, types, s.SourceIDs, s.FlowIDs, s.CreatedBy, s.CreatedAt)
	if err != nil {
		return domain.Subscription{}, postgres.MapError(err, "subscription", s.ID.String())
	}

	return s, nil
}

// GetByID returns a subscription by id.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, getSubscriptionSQL, id)
	s, err := scanSubscription(row)
	if err != nil {
		return domain.Subscription{}, postgres.MapError(err, "subscription", id.String())
	}

	return s, nil
}

// List returns all subscriptions, oldest first.
func (r *Repo) List(ctx context.Context) ([]domain.Subscription, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listSubscriptionsSQL)
	if err != nil {
		return nil, postgres.MapError(err, "subscription", "")
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if subs == nil {
		subs = []domain.Subscription{}
	}

	return subs, nil
}

// Delete removes a subscription. Returns domain.ErrNotFound for unknown ids.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, deleteSubscriptionSQL, id)
	if err != nil {
		return postgres.MapError(err, "subscription", id.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (domain.Subscription, error) {
	var (
		s     domain.Subscription
		types []string
	)
	if err := row.Scan(&s.ID, &s.URL, &types, &s.SourceIDs, &s.FlowIDs,
		&s.CreatedBy, &s.CreatedAt); err != nil {
		return domain.Subscription{}, err
	}

	s.EventTypes = make([]domain.EventType, len(types))
	for i, t := range types {
		s.EventTypes[i] = domain.EventType(t)
	}

	return s, nil
}
