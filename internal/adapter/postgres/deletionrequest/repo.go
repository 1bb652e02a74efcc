// Package deletionrequest implements the DeletionRequest repository using
// PostgreSQL. Status transitions are guarded in SQL so concurrent workers
// cannot move a request backwards or out of a terminal state.
package deletionrequest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/mediagrid/timestore/internal/adapter/postgres"
	"github.com/mediagrid/timestore/internal/domain"
)

// Repo provides deletion request persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new deletion request repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const requestColumns = `id, flow_id, timerange, delete_flow, status, error, created_by, created_at, updated_at`

const insertRequestSQL = `
INSERT INTO deletion_requests (id, flow_id, timerange, delete_flow, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

const getRequestSQL = `
SELECT ` + requestColumns + `
FROM deletion_requests
WHERE id = $1`

const listActiveSQL = `
SELECT ` + requestColumns + `
FROM deletion_requests
WHERE status IN ('pending', 'in_progress')
ORDER BY created_at`

// The WHERE clause doubles as the transition guard: only the expected
// current status matches, so a lost race updates zero rows.
const transitionSQL = `
UPDATE deletion_requests
SET status = $3, error = $4, updated_at = $5
WHERE id = $1 AND status = $2`

// Create records a new request in pending state.
func (r *Repo) Create(ctx context.Context, req domain.DeletionRequest) (domain.DeletionRequest, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := querier.Exec(ctx, insertRequestSQL,
		req.ID, req.FlowID, req.Range.String(), req.DeleteFlow,
		string(req.Status), req.CreatedBy, req.CreatedAt)
	if err != nil {
		return domain.DeletionRequest{}, postgres.MapError(err, "deletion_request", req.ID.String())
	}

	return req, nil
}

// GetByID returns a request by id.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.DeletionRequest, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, getRequestSQL, id)
	req, err := scanRequest(row)
	if err != nil {
		return domain.DeletionRequest{}, postgres.MapError(err, "deletion_request", id.String())
	}

	return req, nil
}

// ListActive returns requests not yet in a terminal state, oldest first.
// Used to resume interrupted work after a restart.
func (r *Repo) ListActive(ctx context.Context) ([]domain.DeletionRequest, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listActiveSQL)
	if err != nil {
		return nil, postgres.MapError(err, "deletion_request", "")
	}
	defer rows.Close()

	var reqs []domain.DeletionRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if reqs == nil {
		reqs = []domain.DeletionRequest{}
	}

	return reqs, nil
}

// Transition moves a request from one status to another. errMsg is stored
// only for failures. Returns domain.ErrStorageConflict when the request is
// no longer in the expected status.
func (r *Repo) Transition(ctx context.Context, id uuid.UUID, from, to domain.DeletionStatus, errMsg *string) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	tag, err := querier.Exec(ctx, transitionSQL, id, string(from), string(to), errMsg, now)
	if err != nil {
		return postgres.MapError(err, "deletion_request", id.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deletion request %s: status is not %s: %w", id, from, domain.ErrStorageConflict)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (domain.DeletionRequest, error) {
	var (
		req      domain.DeletionRequest
		rangeStr string
		status   string
	)
	if err := row.Scan(&req.ID, &req.FlowID, &rangeStr, &req.DeleteFlow,
		&status, &req.Error, &req.CreatedBy, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return domain.DeletionRequest{}, err
	}

	rng, err := domain.ParseTimeRange(rangeStr)
	if err != nil {
		return domain.DeletionRequest{}, fmt.Errorf("stored timerange %q: %w", rangeStr, err)
	}
	req.Range = rng
	req.Status = domain.DeletionStatus(status)

	return req, nil
}
