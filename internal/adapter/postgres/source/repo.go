// Package source implements the Source repository using PostgreSQL.
package source

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/mediagrid/timestore/internal/adapter/postgres"
	"github.com/mediagrid/timestore/internal/domain"
)

// Repo provides source persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new source repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const sourceColumns = `id, format, label, description, created_by, updated_by,
       created_at, updated_at, deleted, deleted_at, deleted_by`

const insertSourceSQL = `
INSERT INTO sources (id, format, label, description, created_by, updated_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const getSourceSQL = `
SELECT ` + sourceColumns + `
FROM sources
WHERE id = $1 AND NOT deleted`

const getSourceAnySQL = `
SELECT ` + sourceColumns + `
FROM sources
WHERE id = $1`

const softDeleteSourceSQL = `
UPDATE sources
SET deleted = true, deleted_at = $2, deleted_by = $3, updated_by = $3, updated_at = $2
WHERE id = $1 AND NOT deleted`

const getCollectionSQL = `
SELECT member_id FROM source_collections WHERE collection_id = $1 ORDER BY member_id`

const clearCollectionSQL = `
DELETE FROM source_collections WHERE collection_id = $1`

const addCollectionMemberSQL = `
INSERT INTO source_collections (collection_id, member_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`

// Create inserts a new source. A duplicate id results in domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, s domain.Source) (domain.Source, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := querier.Exec(ctx, insertSourceSQL,
		s.ID, string(s.Format), s.Label, s.Description,
		s.CreatedBy, s.UpdatedBy, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return domain.Source{}, postgres.MapError(err, "source", s.ID.String())
	}

	return s, nil
}

// CreateBatch inserts multiple sources in a single statement, so the whole
// chunk lands or none of it does.
func (r *Repo) CreateBatch(ctx context.Context, sources []domain.Source) error {
	if len(sources) == 0 {
		return nil
	}

	b := qb.Insert("sources").
		Columns("id", "format", "label", "description", "created_by", "updated_by", "created_at", "updated_at")
	for _, s := range sources {
		b = b.Values(s.ID, string(s.Format), s.Label, s.Description,
			s.CreatedBy, s.UpdatedBy, s.CreatedAt, s.UpdatedAt)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build batch insert: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)
	if _, err := querier.Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "source", "batch")
	}

	return nil
}

// GetByID returns a live source. Soft-deleted sources report domain.ErrNotFound.
// Multi-format sources have their collection member list loaded.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Source, error) {
	return r.get(ctx, id, getSourceSQL)
}

// GetByIDAny returns a source regardless of its tombstone. Used by cleanup
// paths that need to inspect deleted rows.
func (r *Repo) GetByIDAny(ctx context.Context, id uuid.UUID) (domain.Source, error) {
	return r.get(ctx, id, getSourceAnySQL)
}

func (r *Repo) get(ctx context.Context, id uuid.UUID, query string) (domain.Source, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, query, id)
	s, err := scanSource(row)
	if err != nil {
		return domain.Source{}, postgres.MapError(err, "source", id.String())
	}

	if s.Format == domain.ContentFormatMulti {
		if s.Collection, err = r.loadCollection(ctx, id); err != nil {
			return domain.Source{}, err
		}
	}

	return s, nil
}

// List returns sources matching the filter, newest first.
func (r *Repo) List(ctx context.Context, f domain.SourceFilter) ([]domain.Source, error) {
	b := qb.Select(sourceColumns).
		From("sources").
		OrderBy("created_at DESC", "id").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))

	if !f.IncludeDeleted {
		b = b.Where("NOT deleted")
	}
	if f.Format != nil {
		b = b.Where(sq.Eq{"format": string(*f.Format)})
	}
	if f.Label != nil {
		b = b.Where(sq.Eq{"label": *f.Label})
	}
	if f.IDs != nil {
		b = b.Where(sq.Eq{"id": f.IDs})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sources: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "source", "")
	}
	defer rows.Close()

	sources, err := scanSources(rows)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	return sources, nil
}

// Update applies partial updates and returns the resulting row.
// Returns domain.ErrNotFound for missing or soft-deleted sources.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, params domain.SourceUpdateParams, actor string) (domain.Source, error) {
	b := qb.Update("sources").
		Set("updated_by", actor).
		Set("updated_at", time.Now().UTC().Truncate(time.Microsecond)).
		Where(sq.Eq{"id": id}).
		Where("NOT deleted").
		Suffix("RETURNING " + sourceColumns)

	if params.Label != nil {
		b = b.Set("label", nullIfEmpty(*params.Label))
	}
	if params.Description != nil {
		b = b.Set("description", nullIfEmpty(*params.Description))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return domain.Source{}, fmt.Errorf("build update source: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)
	row := querier.QueryRow(ctx, query, args...)
	s, err := scanSource(row)
	if err != nil {
		return domain.Source{}, postgres.MapError(err, "source", id.String())
	}

	return s, nil
}

// SoftDelete marks a source deleted. Idempotent callers should treat
// domain.ErrNotFound on a second call as success.
func (r *Repo) SoftDelete(ctx context.Context, id uuid.UUID, actor string) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	tag, err := querier.Exec(ctx, softDeleteSourceSQL, id, now, actor)
	if err != nil {
		return postgres.MapError(err, "source", id.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("source %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ReplaceCollection swaps the member list of a multi source.
func (r *Repo) ReplaceCollection(ctx context.Context, collectionID uuid.UUID, memberIDs []uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, clearCollectionSQL, collectionID); err != nil {
		return postgres.MapError(err, "source", collectionID.String())
	}
	for _, m := range memberIDs {
		if _, err := querier.Exec(ctx, addCollectionMemberSQL, collectionID, m); err != nil {
			return postgres.MapError(err, "source", m.String())
		}
	}

	return nil
}

func (r *Repo) loadCollection(ctx context.Context, collectionID uuid.UUID) ([]uuid.UUID, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, getCollectionSQL, collectionID)
	if err != nil {
		return nil, postgres.MapError(err, "source", collectionID.String())
	}
	defer rows.Close()

	var members []uuid.UUID
	for rows.Next() {
		var m uuid.UUID
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan collection member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection members: %w", err)
	}

	return members, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (domain.Source, error) {
	var (
		s      domain.Source
		format string
	)
	if err := row.Scan(&s.ID, &format, &s.Label, &s.Description,
		&s.CreatedBy, &s.UpdatedBy, &s.CreatedAt, &s.UpdatedAt,
		&s.Deleted, &s.DeletedAt, &s.DeletedBy); err != nil {
		return domain.Source{}, err
	}
	s.Format = domain.ContentFormat(format)
	return s, nil
}

func scanSources(rows pgx.Rows) ([]domain.Source, error) {
	var sources []domain.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if sources == nil {
		sources = []domain.Source{}
	}

	return sources, nil
}
