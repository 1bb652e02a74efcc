// Package reference implements the object reference counter using
// PostgreSQL. One row tracks how many live segments of a flow point at an
// object; an object whose counts all reach zero is an orphan.
package reference

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/mediagrid/timestore/internal/adapter/postgres"
	"github.com/mediagrid/timestore/internal/domain"
)

// Repo provides reference-count persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new reference repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const incrementSQL = `
INSERT INTO object_references (object_id, flow_id, segment_count)
VALUES ($1, $2, 1)
ON CONFLICT (object_id, flow_id) DO UPDATE SET segment_count = object_references.segment_count + 1`

// Decrement floors at zero rather than going negative on double deletes.
const decrementSQL = `
UPDATE object_references
SET segment_count = GREATEST(segment_count - 1, 0)
WHERE object_id = $1 AND flow_id = $2`

const totalForObjectSQL = `
SELECT COALESCE(sum(segment_count), 0) FROM object_references WHERE object_id = $1`

const listForObjectSQL = `
SELECT flow_id, segment_count FROM object_references WHERE object_id = $1 ORDER BY flow_id`

const setCountSQL = `
INSERT INTO object_references (object_id, flow_id, segment_count)
VALUES ($1, $2, $3)
ON CONFLICT (object_id, flow_id) DO UPDATE SET segment_count = EXCLUDED.segment_count`

// Counts recomputed from the segments table; the source of truth for repair.
const recountSQL = `
SELECT object_id, flow_id, count(*)
FROM segments
WHERE NOT deleted
GROUP BY object_id, flow_id`

const clearSQL = `
DELETE FROM object_references`

// Increment bumps the (object, flow) count by one, creating the row on
// first reference.
func (r *Repo) Increment(ctx context.Context, objectID string, flowID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, incrementSQL, objectID, flowID); err != nil {
		return postgres.MapError(err, "object_reference", objectID)
	}

	return nil
}

// Decrement drops the (object, flow) count by one, never below zero.
func (r *Repo) Decrement(ctx context.Context, objectID string, flowID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, decrementSQL, objectID, flowID); err != nil {
		return postgres.MapError(err, "object_reference", objectID)
	}

	return nil
}

// TotalForObject returns the object's reference count summed across flows.
func (r *Repo) TotalForObject(ctx context.Context, objectID string) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var total int
	if err := querier.QueryRow(ctx, totalForObjectSQL, objectID).Scan(&total); err != nil {
		return 0, postgres.MapError(err, "object_reference", objectID)
	}

	return total, nil
}

// ListForObject returns the per-flow breakdown of an object's references.
func (r *Repo) ListForObject(ctx context.Context, objectID string) ([]domain.ObjectReference, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listForObjectSQL, objectID)
	if err != nil {
		return nil, postgres.MapError(err, "object_reference", objectID)
	}
	defer rows.Close()

	var counts []domain.ObjectReference
	for rows.Next() {
		var ref domain.ObjectReference
		if err := rows.Scan(&ref.FlowID, &ref.SegmentCount); err != nil {
			return nil, err
		}
		counts = append(counts, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if counts == nil {
		counts = []domain.ObjectReference{}
	}

	return counts, nil
}

// Rebuild recomputes every reference count from the live segments. Run
// inside a transaction so readers never observe the cleared state.
func (r *Repo) Rebuild(ctx context.Context) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, recountSQL)
	if err != nil {
		return postgres.MapError(err, "object_reference", "")
	}

	type entry struct {
		objectID string
		flowID   uuid.UUID
		count    int
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.objectID, &e.flowID, &e.count); err != nil {
			rows.Close()
			return err
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := querier.Exec(ctx, clearSQL); err != nil {
		return postgres.MapError(err, "object_reference", "")
	}
	for _, e := range entries {
		if _, err := querier.Exec(ctx, setCountSQL, e.objectID, e.flowID, e.count); err != nil {
			return postgres.MapError(err, "object_reference", e.objectID)
		}
	}

	return nil
}
