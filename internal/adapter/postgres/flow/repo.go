// Package flow implements the Flow repository using PostgreSQL.
//
// The per-format essence union is flattened into nullable columns; scan
// rebuilds exactly the essence struct matching the stored format.
package flow

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

// Repo provides flow persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new flow repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const flowColumns = `id, source_id, format, codec, container, label, description, read_only,
       frame_width, frame_height, frame_rate, interlaced,
       sample_rate, bits_per_sample, channels, mime_type,
       created_by, updated_by, created_at, updated_at, deleted, deleted_at, deleted_by`

const insertFlowSQL = `
INSERT INTO flows (id, source_id, format, codec, container, label, description, read_only,
                   frame_width, frame_height, frame_rate, interlaced,
                   sample_rate, bits_per_sample, channels, mime_type,
                   created_by, updated_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

const getFlowSQL = `
SELECT ` + flowColumns + `
FROM flows
WHERE id = $1 AND NOT deleted`

const getFlowAnySQL = `
SELECT ` + flowColumns + `
FROM flows
WHERE id = $1`

const softDeleteFlowSQL = `
UPDATE flows
SET deleted = true, deleted_at = $2, deleted_by = $3, updated_by = $3, updated_at = $2
WHERE id = $1 AND NOT deleted`

const countActiveBySourceSQL = `
SELECT count(*) FROM flows WHERE source_id = $1 AND NOT deleted`

const getCollectionSQL = `
SELECT member_id FROM flow_collections WHERE collection_id = $1 ORDER BY member_id`

const clearCollectionSQL = `
DELETE FROM flow_collections WHERE collection_id = $1`

const addCollectionMemberSQL = `
INSERT INTO flow_collections (collection_id, member_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`

// Create inserts a new flow. A missing source surfaces as
// domain.ErrDanglingReference via the foreign key.
func (r *Repo) Create(ctx context.Context, f domain.Flow) (domain.Flow, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	args := essenceArgs(f)
	_, err := querier.Exec(ctx, insertFlowSQL, args...)
	if err != nil {
		return domain.Flow{}, postgres.MapError(err, "flow", f.ID.String())
	}

	return f, nil
}

// CreateBatch inserts multiple flows in a single statement.
func (r *Repo) CreateBatch(ctx context.Context, flows []domain.Flow) error {
	if len(flows) == 0 {
		return nil
	}

	b := qb.Insert("flows").
		Columns("id", "source_id", "format", "codec", "container", "label", "description", "read_only",
			"frame_width", "frame_height", "frame_rate", "interlaced",
			"sample_rate", "bits_per_sample", "channels", "mime_type",
			"created_by", "updated_by", "created_at", "updated_at")
	for _, f := range flows {
		b = b.Values(essenceArgs(f)...)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build batch insert: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)
	if _, err := querier.Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "flow", "batch")
	}

	return nil
}

// GetByID returns a live flow. Soft-deleted flows report domain.ErrNotFound.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Flow, error) {
	return r.get(ctx, id, getFlowSQL)
}

// GetByIDAny returns a flow regardless of its tombstone.
func (r *Repo) GetByIDAny(ctx context.Context, id uuid.UUID) (domain.Flow, error) {
	return r.get(ctx, id, getFlowAnySQL)
}

func (r *Repo) get(ctx context.Context, id uuid.UUID, query string) (domain.Flow, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, query, id)
	f, err := scanFlow(row)
	if err != nil {
		return domain.Flow{}, postgres.MapError(err, "flow", id.String())
	}

	if f.Format == domain.ContentFormatMulti {
		if f.Collection, err = r.loadCollection(ctx, id); err != nil {
			return domain.Flow{}, err
		}
	}

	return f, nil
}

// List returns flows matching the filter, newest first.
func (r *Repo) List(ctx context.Context, f domain.FlowFilter) ([]domain.Flow, error) {
	b := qb.Select(flowColumns).
		From("flows").
		OrderBy("created_at DESC", "id").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))

	if !f.IncludeDeleted {
		b = b.Where("NOT deleted")
	}
	if f.SourceID != nil {
		b = b.Where(sq.Eq{"source_id": *f.SourceID})
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
		return nil, fmt.Errorf("build list flows: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "flow", "")
	}
	defer rows.Close()

	flows, err := scanFlows(rows)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}

	return flows, nil
}

// Update applies partial updates and returns the resulting row.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, params domain.FlowUpdateParams, actor string) (domain.Flow, error) {
	b := qb.Update("flows").
		Set("updated_by", actor).
		Set("updated_at", time.Now().UTC().Truncate(time.Microsecond)).
		Where(sq.Eq{"id": id}).
		Where("NOT deleted").
		Suffix("RETURNING " + flowColumns)

	if params.Label != nil {
		b = b.Set("label", nullIfEmpty(*params.Label))
	}
	if params.Description != nil {
		b = b.Set("description", nullIfEmpty(*params.Description))
	}
	if params.ReadOnly != nil {
		b = b.Set("read_only", *params.ReadOnly)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return domain.Flow{}, fmt.Errorf("build update flow: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)
	row := querier.QueryRow(ctx, query, args...)
	f, err := scanFlow(row)
	if err != nil {
		return domain.Flow{}, postgres.MapError(err, "flow", id.String())
	}

	return f, nil
}

// SoftDelete marks a flow deleted.
func (r *Repo) SoftDelete(ctx context.Context, id uuid.UUID, actor string) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	tag, err := querier.Exec(ctx, softDeleteFlowSQL, id, now, actor)
	if err != nil {
		return postgres.MapError(err, "flow", id.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("flow %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// CountActiveBySource returns the number of live flows under a source.
func (r *Repo) CountActiveBySource(ctx context.Context, sourceID uuid.UUID) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx, countActiveBySourceSQL, sourceID).Scan(&count); err != nil {
		return 0, postgres.MapError(err, "flow", "")
	}

	return count, nil
}

// ReplaceCollection swaps the constituent list of a multi flow.
func (r *Repo) ReplaceCollection(ctx context.Context, collectionID uuid.UUID, memberIDs []uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, clearCollectionSQL, collectionID); err != nil {
		return postgres.MapError(err, "flow", collectionID.String())
	}
	for _, m := range memberIDs {
		if _, err := querier.Exec(ctx, addCollectionMemberSQL, collectionID, m); err != nil {
			return postgres.MapError(err, "flow", m.String())
		}
	}

	return nil
}

func (r *Repo) loadCollection(ctx context.Context, collectionID uuid.UUID) ([]uuid.UUID, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, getCollectionSQL, collectionID)
	if err != nil {
		return nil, postgres.MapError(err, "flow", collectionID.String())
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

// essenceArgs flattens a flow into the insert column order.
func essenceArgs(f domain.Flow) []any {
	var (
		frameWidth, frameHeight       *int
		frameRate                     *string
		interlaced                    *bool
		sampleRate, bitsPerSample     *int
		channels                      *int
		mimeType                      *string
	)

	switch {
	case f.Video != nil:
		frameWidth = &f.Video.FrameWidth
		frameHeight = &f.Video.FrameHeight
		frameRate = &f.Video.FrameRate
		interlaced = &f.Video.Interlaced
	case f.Audio != nil:
		sampleRate = &f.Audio.SampleRate
		bitsPerSample = &f.Audio.BitsPerSample
		channels = &f.Audio.Channels
	case f.Image != nil:
		frameWidth = &f.Image.FrameWidth
		frameHeight = &f.Image.FrameHeight
	case f.Data != nil:
		mimeType = f.Data.MimeType
	}

	return []any{
		f.ID, f.SourceID, string(f.Format), f.Codec, f.Container, f.Label, f.Description, f.ReadOnly,
		frameWidth, frameHeight, frameRate, interlaced,
		sampleRate, bitsPerSample, channels, mimeType,
		f.CreatedBy, f.UpdatedBy, f.CreatedAt, f.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlow(row rowScanner) (domain.Flow, error) {
	var (
		f      domain.Flow
		format string

		frameWidth, frameHeight   *int
		frameRate                 *string
		interlaced                *bool
		sampleRate, bitsPerSample *int
		channels                  *int
		mimeType                  *string
	)

	if err := row.Scan(&f.ID, &f.SourceID, &format, &f.Codec, &f.Container, &f.Label, &f.Description, &f.ReadOnly,
		&frameWidth, &frameHeight, &frameRate, &interlaced,
		&sampleRate, &bitsPerSample, &channels, &mimeType,
		&f.CreatedBy, &f.UpdatedBy, &f.CreatedAt, &f.UpdatedAt,
		&f.Deleted, &f.DeletedAt, &f.DeletedBy); err != nil {
		return domain.Flow{}, err
	}

	f.Format = domain.ContentFormat(format)
	switch f.Format {
	case domain.ContentFormatVideo:
		f.Video = &domain.VideoEssence{}
		if frameWidth != nil {
			f.Video.FrameWidth = *frameWidth
		}
		if frameHeight != nil {
			f.Video.FrameHeight = *frameHeight
		}
		if frameRate != nil {
			f.Video.FrameRate = *frameRate
		}
		if interlaced != nil {
			f.Video.Interlaced = *interlaced
		}
	case domain.ContentFormatAudio:
		f.Audio = &domain.AudioEssence{}
		if sampleRate != nil {
			f.Audio.SampleRate = *sampleRate
		}
		if bitsPerSample != nil {
			f.Audio.BitsPerSample = *bitsPerSample
		}
		if channels != nil {
			f.Audio.Channels = *channels
		}
	case domain.ContentFormatImage:
		f.Image = &domain.ImageEssence{}
		if frameWidth != nil {
			f.Image.FrameWidth = *frameWidth
		}
		if frameHeight != nil {
			f.Image.FrameHeight = *frameHeight
		}
	case domain.ContentFormatData:
		f.Data = &domain.DataEssence{MimeType: mimeType}
	}

	return f, nil
}

func scanFlows(rows pgx.Rows) ([]domain.Flow, error) {
	var flows []domain.Flow
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if flows == nil {
		flows = []domain.Flow{}
	}

	return flows, nil
}
