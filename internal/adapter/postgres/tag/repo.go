// Package tag implements the tag annotation store using PostgreSQL.
package tag

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/mediagrid/timestore/internal/adapter/postgres"
	"github.com/mediagrid/timestore/internal/domain"
)

// Repo provides tag persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new tag repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const tagColumns = `entity_type, entity_id, name, value, created_by, updated_by, created_at, updated_at`

const upsertTagSQL = `
INSERT INTO tags (entity_type, entity_id, name, value, created_by, updated_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5, $6, $6)
ON CONFLICT (entity_type, entity_id, name)
DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at
RETURNING ` + tagColumns

const listTagsSQL = `
SELECT ` + tagColumns + `
FROM tags
WHERE entity_type = $1 AND entity_id = $2
ORDER BY name`

const getTagSQL = `
SELECT ` + tagColumns + `
FROM tags
WHERE entity_type = $1 AND entity_id = $2 AND name = $3`

const deleteTagSQL = `
DELETE FROM tags WHERE entity_type = $1 AND entity_id = $2 AND name = $3`

const deleteAllForEntitySQL = `
DELETE FROM tags WHERE entity_type = $1 AND entity_id = $2`

const filterByValueSQL = `
SELECT entity_id FROM tags
WHERE entity_type = $1 AND name = $2 AND value = $3
ORDER BY entity_id`

const filterExistsSQL = `
SELECT entity_id FROM tags
WHERE entity_type = $1 AND name = $2
ORDER BY entity_id`

// Entity ids without the named tag require walking the owning entity table.
// Keyed by entity type below; ids are cast to text to match the tag key.
const filterNotExistsSQLTemplate = `
SELECT e.id::text FROM %s e
WHERE NOT e.deleted AND NOT EXISTS (
    SELECT 1 FROM tags t
    WHERE t.entity_type = $1 AND t.entity_id = e.id::text AND t.name = $2
)
ORDER BY e.id::text`

// Upsert writes a tag, replacing the value if the name is already set.
func (r *Repo) Upsert(ctx context.Context, t domain.Tag) (domain.Tag, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	row := querier.QueryRow(ctx, upsertTagSQL,
		string(t.EntityType), t.EntityID, t.Name, t.Value, t.UpdatedBy, now)
	stored, err := scanTag(row)
	if err != nil {
		return domain.Tag{}, postgres.MapError(err, "tag", t.EntityID)
	}

	return stored, nil
}

// Get returns one tag by its full key.
func (r *Repo) Get(ctx context.Context, entityType domain.EntityType, entityID, name string) (domain.Tag, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, getTagSQL, string(entityType), entityID, name)
	t, err := scanTag(row)
	if err != nil {
		return domain.Tag{}, postgres.MapError(err, "tag", entityID)
	}

	return t, nil
}

// ListForEntity returns all tags on an entity, sorted by name.
func (r *Repo) ListForEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.Tag, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listTagsSQL, string(entityType), entityID)
	if err != nil {
		return nil, postgres.MapError(err, "tag", entityID)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if tags == nil {
		tags = []domain.Tag{}
	}

	return tags, nil
}

// Delete removes one tag. Deleting an absent tag is a no-op.
func (r *Repo) Delete(ctx context.Context, entityType domain.EntityType, entityID, name string) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, deleteTagSQL, string(entityType), entityID, name); err != nil {
		return postgres.MapError(err, "tag", entityID)
	}

	return nil
}

// DeleteAllForEntity removes every tag on an entity.
func (r *Repo) DeleteAllForEntity(ctx context.Context, entityType domain.EntityType, entityID string) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, deleteAllForEntitySQL, string(entityType), entityID); err != nil {
		return postgres.MapError(err, "tag", entityID)
	}

	return nil
}

// FilterByValue returns ids of entities carrying name=value.
func (r *Repo) FilterByValue(ctx context.Context, entityType domain.EntityType, name, value string) ([]string, error) {
	return r.queryIDs(ctx, filterByValueSQL, string(entityType), name, value)
}

// FilterByExists returns ids of entities that have (or, with exists=false,
// lack) a tag with the given name. The negative case scans live rows of the
// owning entity table.
func (r *Repo) FilterByExists(ctx context.Context, entityType domain.EntityType, name string, exists bool) ([]string, error) {
	if exists {
		return r.queryIDs(ctx, filterExistsSQL, string(entityType), name)
	}

	table, err := entityTable(entityType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(filterNotExistsSQLTemplate, table)
	return r.queryIDs(ctx, query, string(entityType), name)
}

func (r *Repo) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "tag", "")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if ids == nil {
		ids = []string{}
	}

	return ids, nil
}

func entityTable(t domain.EntityType) (string, error) {
	switch t {
	case domain.EntityTypeSource:
		return "sources", nil
	case domain.EntityTypeFlow:
		return "flows", nil
	case domain.EntityTypeSegment:
		return "segments", nil
	}
	return "", fmt.Errorf("entity type %q: %w", t, domain.ErrValidation)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTag(row rowScanner) (domain.Tag, error) {
	var (
		t          domain.Tag
		entityType string
	)
	if err := row.Scan(&entityType, &t.EntityID, &t.Name, &t.Value,
		&t.CreatedBy, &t.UpdatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.Tag{}, err
	}
	t.EntityType = domain.EntityType(entityType)
	return t, nil
}
