package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediagrid/timestore/internal/adapter/postgres"
	"github.com/mediagrid/timestore/internal/adapter/postgres/testhelper"
)

// sourceExists checks whether a source row with the given ID exists in the database.
func sourceExists(t *testing.T, pool *pgxpool.Pool, sourceID uuid.UUID) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(
		context.Background(),
		`SELECT EXISTS(SELECT 1 FROM sources WHERE id = $1)`,
		sourceID,
	).Scan(&exists)
	if err != nil {
		t.Fatalf("sourceExists query: %v", err)
	}
	return exists
}

func insertSource(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx,
		`INSERT INTO sources (id, format, created_at, updated_at) VALUES ($1, 'video', now(), now())`,
		id,
	)
	return err
}

func TestRunInTx_Commit(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	sourceID := uuid.New()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return insertSource(ctx, postgres.QuerierFromCtx(ctx, pool), sourceID)
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	if !sourceExists(t, pool, sourceID) {
		t.Fatal("expected source to exist after committed transaction")
	}
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	sourceID := uuid.New()
	sentinel := errors.New("business logic error")

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		if execErr := insertSource(ctx, postgres.QuerierFromCtx(ctx, pool), sourceID); execErr != nil {
			t.Fatalf("insert inside tx failed: %v", execErr)
		}
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}

	if sourceExists(t, pool, sourceID) {
		t.Fatal("expected source NOT to exist after rolled-back transaction")
	}
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	sourceID := uuid.New()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic to be re-raised")
		}
		if r != "test panic" {
			t.Fatalf("expected panic value %q, got %v", "test panic", r)
		}

		// Verify data was rolled back.
		if sourceExists(t, pool, sourceID) {
			t.Fatal("expected source NOT to exist after panic-rolled-back transaction")
		}
	}()

	_ = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		if err := insertSource(ctx, postgres.QuerierFromCtx(ctx, pool), sourceID); err != nil {
			t.Fatalf("insert inside tx failed: %v", err)
		}
		panic("test panic")
	})
}

func TestRunInTx_QuerierFromCtx_UsesTx(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	sourceID := uuid.New()

	// The insert must be visible within the transaction through the ctx
	// querier before commit.
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, pool)
		if err := insertSource(ctx, q, sourceID); err != nil {
			return err
		}

		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sources WHERE id = $1)`, sourceID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			t.Fatal("expected source to be visible inside the transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	if !sourceExists(t, pool, sourceID) {
		t.Fatal("expected source to exist after commit")
	}
}
