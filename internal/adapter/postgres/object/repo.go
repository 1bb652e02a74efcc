// Package object implements the stored-object repository using PostgreSQL.
package object

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/mediagrid/timestore/internal/adapter/postgres"
	"github.com/mediagrid/timestore/internal/domain"
)

// Repo provides object persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new object repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const objectColumns = `id, size, created_at, last_accessed, access_count`

// Registering an already known object is a no-op apart from refreshing the
// size, which may have been unknown (zero) on first sight.
const upsertObjectSQL = `
INSERT INTO objects (id, size, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET size = GREATEST(objects.size, EXCLUDED.size)
RETURNING ` + objectColumns

const getObjectSQL = `
SELECT ` + objectColumns + `
FROM objects
WHERE id = $1`

const touchObjectSQL = `
UPDATE objects
SET last_accessed = $2, access_count = access_count + 1
WHERE id = $1
RETURNING ` + objectColumns

const deleteObjectSQL = `
DELETE FROM objects WHERE id = $1`

const listOrphanedSQL = `
SELECT ` + objectColumns + `
FROM objects o
WHERE NOT EXISTS (
    SELECT 1 FROM object_references r
    WHERE r.object_id = o.id AND r.segment_count > 0
)
ORDER BY o.id
LIMIT $1`

// Upsert registers an object, returning the stored row. Idempotent.
func (r *Repo) Upsert(ctx context.Context, o domain.Object) (domain.Object, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, upsertObjectSQL, o.ID, o.Size, o.CreatedAt)
	stored, err := scanObject(row)
	if err != nil {
		return domain.Object{}, postgres.MapError(err, "object", o.ID)
	}

	return stored, nil
}

// GetByID returns an object by key.
func (r *Repo) GetByID(ctx context.Context, id string) (domain.Object, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, getObjectSQL, id)
	o, err := scanObject(row)
	if err != nil {
		return domain.Object{}, postgres.MapError(err, "object", id)
	}

	return o, nil
}

// Touch records an access at now, bumping the access counter.
func (r *Repo) Touch(ctx context.Context, id string, now time.Time) (domain.Object, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, touchObjectSQL, id, now)
	o, err := scanObject(row)
	if err != nil {
		return domain.Object{}, postgres.MapError(err, "object", id)
	}

	return o, nil
}

// Delete removes the object row. Reference rows cascade away with it.
// Deleting an unknown object is a no-op.
func (r *Repo) Delete(ctx context.Context, id string) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, deleteObjectSQL, id); err != nil {
		return postgres.MapError(err, "object", id)
	}

	return nil
}

// ListOrphaned returns up to limit objects no live segment references.
func (r *Repo) ListOrphaned(ctx context.Context, limit int) ([]domain.Object, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listOrphanedSQL, limit)
	if err != nil {
		return nil, postgres.MapError(err, "object", "")
	}
	defer rows.Close()

	var objects []domain.Object
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if objects == nil {
		objects = []domain.Object{}
	}

	return objects, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row rowScanner) (domain.Object, error) {
	var o domain.Object
	if err := row.Scan(&o.ID, &o.Size, &o.CreatedAt, &o.LastAccessed, &o.AccessCount); err != nil {
		return domain.Object{}, err
	}
	return o, nil
}
