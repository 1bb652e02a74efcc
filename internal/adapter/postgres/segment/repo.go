// Package segment implements the Segment repository using PostgreSQL.
//
// Ranges are stored twice: the canonical text form for equality and
// round-tripping, and derived numeric bounds with inclusivity flags that the
// overlap predicate and the keyset listing order run on.
package segment

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

// Repo provides segment persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new segment repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const segmentColumns = `id, flow_id, object_id, timerange, storage_path,
       sample_offset, sample_count, key_frame_count,
       created_by, created_at, deleted, deleted_at, deleted_by`

// Insert serializes against concurrent writers of the same flow via an
// advisory lock scoped to the surrounding transaction.
const lockFlowSQL = `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`

const insertSegmentSQL = `
INSERT INTO segments (id, flow_id, object_id, timerange,
                      start_ts, end_ts, start_inclusive, end_inclusive, duration_seconds,
                      storage_path, sample_offset, sample_count, key_frame_count,
                      created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

const getSegmentSQL = `
SELECT ` + segmentColumns + `
FROM segments
WHERE id = $1`

const softDeleteSegmentSQL = `
UPDATE segments
SET deleted = true, deleted_at = $2, deleted_by = $3
WHERE id = $1 AND NOT deleted`

const countActiveByFlowSQL = `
SELECT count(*) FROM segments WHERE flow_id = $1 AND NOT deleted`

// Create inserts a segment. It must run inside a transaction: the advisory
// lock on the flow id is transaction scoped and guards the live-timerange
// uniqueness check against concurrent inserts.
func (r *Repo) Create(ctx context.Context, s domain.Segment) (domain.Segment, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, lockFlowSQL, s.FlowID); err != nil {
		return domain.Segment{}, postgres.MapError(err, "segment", s.ID.String())
	}

	startDec, endDec := boundDecimals(s.Range)
	var duration *float64
	if d, ok := s.Range.DurationSeconds(); ok {
		duration = &d
	}

	_, err := querier.Exec(ctx, insertSegmentSQL,
		s.ID, s.FlowID, s.ObjectID, s.Range.String(),
		startDec, endDec, s.Range.StartInclusive, s.Range.EndInclusive, duration,
		s.StoragePath, s.SampleOffset, s.SampleCount, s.KeyFrameCount,
		s.CreatedBy, s.CreatedAt,
	)
	if err != nil {
		return domain.Segment{}, postgres.MapError(err, "segment", s.ID.String())
	}

	return s, nil
}

// GetByID returns a segment including soft-deleted rows.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Segment, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, getSegmentSQL, id)
	s, err := scanSegment(row)
	if err != nil {
		return domain.Segment{}, postgres.MapError(err, "segment", id.String())
	}

	return s, nil
}

// ListByRange returns live segments of a flow overlapping rng, in ascending
// range order, one page at a time. The returned token resumes the listing;
// it is empty on the last page.
func (r *Repo) ListByRange(ctx context.Context, flowID uuid.UUID, rng domain.TimeRange, q domain.SegmentQuery) ([]domain.Segment, string, error) {
	if rng.IsEmpty() {
		return []domain.Segment{}, "", nil
	}

	b := qb.Select(segmentColumns).
		From("segments").
		Where(sq.Eq{"flow_id": flowID}).
		OrderBy("start_ts ASC NULLS FIRST", "start_inclusive DESC", "id").
		Limit(uint64(q.Limit + 1))

	if !q.IncludeDeleted {
		b = b.Where("NOT deleted")
	}
	b = applyOverlap(b, rng)

	if q.Cursor != "" {
		c, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, "", err
		}
		b = b.Where(
			`(start_ts IS NOT NULL, COALESCE(start_ts, 0), CASE WHEN start_inclusive THEN 0 ELSE 1 END, id)
			 > (?, ?::numeric, ?, ?)`,
			c.HasStart, c.Start, c.InclRank, c.ID,
		)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("build range query: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, "", postgres.MapError(err, "segment", "")
	}
	defer rows.Close()

	segments, err := scanSegments(rows)
	if err != nil {
		return nil, "", fmt.Errorf("list segments: %w", err)
	}

	next := ""
	if len(segments) > q.Limit {
		segments = segments[:q.Limit]
		next = cursorFromSegment(segments[len(segments)-1]).Encode()
	}

	return segments, next, nil
}

// CountInRange counts live segments of a flow overlapping rng.
func (r *Repo) CountInRange(ctx context.Context, flowID uuid.UUID, rng domain.TimeRange) (int, error) {
	if rng.IsEmpty() {
		return 0, nil
	}

	b := qb.Select("count(*)").
		From("segments").
		Where(sq.Eq{"flow_id": flowID}).
		Where("NOT deleted")
	b = applyOverlap(b, rng)

	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build range count: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)
	var count int
	if err := querier.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, postgres.MapError(err, "segment", "")
	}

	return count, nil
}

// CountActiveByFlow counts all live segments of a flow.
func (r *Repo) CountActiveByFlow(ctx context.Context, flowID uuid.UUID) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx, countActiveByFlowSQL, flowID).Scan(&count); err != nil {
		return 0, postgres.MapError(err, "segment", "")
	}

	return count, nil
}

// SoftDelete marks a segment deleted. Returns false without error when the
// segment was already deleted or never existed, so that retried bulk
// deletions skip gracefully.
func (r *Repo) SoftDelete(ctx context.Context, id uuid.UUID, actor string) (bool, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	tag, err := querier.Exec(ctx, softDeleteSegmentSQL, id, now, actor)
	if err != nil {
		return false, postgres.MapError(err, "segment", id.String())
	}

	return tag.RowsAffected() > 0, nil
}

// applyOverlap adds the half-open interval overlap predicate for rng.
// Open bounds (NULL columns, nil range bounds) match everything on that side.
func applyOverlap(b sq.SelectBuilder, rng domain.TimeRange) sq.SelectBuilder {
	if rng.End != nil {
		endDec := rng.End.Decimal()
		conds := sq.Or{
			sq.Expr("start_ts IS NULL"),
			sq.Expr("start_ts < ?::numeric", endDec),
		}
		if rng.EndInclusive {
			conds = append(conds, sq.Expr("(start_ts = ?::numeric AND start_inclusive)", endDec))
		}
		b = b.Where(conds)
	}
	if rng.Start != nil {
		startDec := rng.Start.Decimal()
		conds := sq.Or{
			sq.Expr("end_ts IS NULL"),
			sq.Expr("end_ts > ?::numeric", startDec),
		}
		if rng.StartInclusive {
			conds = append(conds, sq.Expr("(end_ts = ?::numeric AND end_inclusive)", startDec))
		}
		b = b.Where(conds)
	}
	return b
}

// boundDecimals renders the range bounds as fixed-precision decimal strings
// for the NUMERIC columns; nil means the bound is open.
func boundDecimals(rng domain.TimeRange) (start, end *string) {
	if rng.Start != nil {
		s := rng.Start.Decimal()
		start = &s
	}
	if rng.End != nil {
		e := rng.End.Decimal()
		end = &e
	}
	return start, end
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSegment(row rowScanner) (domain.Segment, error) {
	var (
		s        domain.Segment
		rangeStr string
	)
	if err := row.Scan(&s.ID, &s.FlowID, &s.ObjectID, &rangeStr, &s.StoragePath,
		&s.SampleOffset, &s.SampleCount, &s.KeyFrameCount,
		&s.CreatedBy, &s.CreatedAt, &s.Deleted, &s.DeletedAt, &s.DeletedBy); err != nil {
		return domain.Segment{}, err
	}

	rng, err := domain.ParseTimeRange(rangeStr)
	if err != nil {
		return domain.Segment{}, fmt.Errorf("stored timerange %q: %w", rangeStr, err)
	}
	s.Range = rng

	return s, nil
}

func scanSegments(rows pgx.Rows) ([]domain.Segment, error) {
	var segments []domain.Segment
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if segments == nil {
		segments = []domain.Segment{}
	}

	return segments, nil
}
