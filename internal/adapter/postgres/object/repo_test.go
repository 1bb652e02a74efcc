package object_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/adapter/postgres/object"
	"github.com/mediagrid/timestore/internal/adapter/postgres/segment"
	"github.com/mediagrid/timestore/internal/adapter/postgres/testhelper"
	"github.com/mediagrid/timestore/internal/domain"
)

func TestRepo_Upsert_Idempotent(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := object.New(pool)
	ctx := context.Background()

	id := "obj-" + uuid.New().String()[:8]
	now := time.Now().UTC().Truncate(time.Microsecond)

	first, err := repo.Upsert(ctx, domain.Object{ID: id, Size: 0, CreatedAt: now})
	if err != nil {
		t.Fatalf("Upsert: unexpected error: %v", err)
	}
	if first.Size != 0 {
		t.Errorf("Size mismatch: got %d", first.Size)
	}

	// Re-registering with a known size fills it in; created_at is kept.
	second, err := repo.Upsert(ctx, domain.Object{ID: id, Size: 2048, CreatedAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Upsert repeat: unexpected error: %v", err)
	}
	if second.Size != 2048 {
		t.Errorf("Size mismatch after upsert: got %d", second.Size)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt must not change: got %s, want %s", second.CreatedAt, first.CreatedAt)
	}
}

func TestRepo_Touch_BumpsAccess(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := object.New(pool)
	ctx := context.Background()

	obj := testhelper.SeedObject(t, pool, "obj-"+uuid.New().String()[:8], 100)

	at := time.Now().UTC().Truncate(time.Microsecond)
	got, err := repo.Touch(ctx, obj.ID, at)
	if err != nil {
		t.Fatalf("Touch: unexpected error: %v", err)
	}
	if got.AccessCount != 1 {
		t.Errorf("AccessCount mismatch: got %d", got.AccessCount)
	}
	if got.LastAccessed == nil || !got.LastAccessed.Equal(at) {
		t.Errorf("LastAccessed mismatch: got %v", got.LastAccessed)
	}

	got, err = repo.Touch(ctx, obj.ID, at.Add(time.Minute))
	if err != nil {
		t.Fatalf("Touch: unexpected error: %v", err)
	}
	if got.AccessCount != 2 {
		t.Errorf("AccessCount mismatch: got %d", got.AccessCount)
	}
}

func TestRepo_Delete_Idempotent(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := object.New(pool)
	ctx := context.Background()

	obj := testhelper.SeedObject(t, pool, "obj-"+uuid.New().String()[:8], 100)

	if err := repo.Delete(ctx, obj.ID); err != nil {
		t.Fatalf("Delete: unexpected error: %v", err)
	}
	if _, err := repo.GetByID(ctx, obj.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, obj.ID); err != nil {
		t.Fatalf("repeat Delete must be a no-op: %v", err)
	}
}

func TestRepo_Delete_WithTombstonedSegment(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := object.New(pool)
	segments := segment.New(pool)
	ctx := context.Background()

	src := testhelper.SeedSource(t, pool)
	fl := testhelper.SeedFlow(t, pool, src.ID)
	obj := testhelper.SeedObject(t, pool, "obj-"+uuid.New().String()[:8], 512)

	rng, err := domain.ParseTimeRange("[0:0_10:0)")
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	seg := domain.Segment{
		ID:          uuid.New(),
		FlowID:      fl.ID,
		ObjectID:    obj.ID,
		Range:       rng,
		StoragePath: "store/" + obj.ID,
		CreatedBy:   "tester",
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	if _, err := segments.Create(ctx, seg); err != nil {
		t.Fatalf("Create segment: unexpected error: %v", err)
	}
	if _, err := segments.SoftDelete(ctx, seg.ID, "tester"); err != nil {
		t.Fatalf("SoftDelete segment: unexpected error: %v", err)
	}

	// Reclaiming the orphan must succeed even though the tombstoned segment
	// row still names the object.
	if err := repo.Delete(ctx, obj.ID); err != nil {
		t.Fatalf("Delete: unexpected error: %v", err)
	}
	if _, err := repo.GetByID(ctx, obj.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// The tombstone survives for audit.
	var deleted bool
	err = pool.QueryRow(ctx,
		`SELECT deleted FROM segments WHERE id = $1`, seg.ID,
	).Scan(&deleted)
	if err != nil {
		t.Fatalf("segment row lookup: %v", err)
	}
	if !deleted {
		t.Error("segment tombstone should remain after object reclamation")
	}
}
