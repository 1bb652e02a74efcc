package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediagrid/timestore/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedSource creates a video source row and returns the filled domain.Source.
func SeedSource(t *testing.T, pool *pgxpool.Pool) domain.Source {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	label := "test source " + suffix
	src := domain.Source{
		ID:        uuid.New(),
		Format:    domain.ContentFormatVideo,
		Label:     &label,
		CreatedBy: "testhelper",
		UpdatedBy: "testhelper",
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO sources (id, format, label, created_by, updated_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		src.ID, string(src.Format), src.Label, src.CreatedBy, src.UpdatedBy, src.CreatedAt, src.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedSource insert: %v", err)
	}

	return src
}

// SeedFlow creates a video flow under the given source.
func SeedFlow(t *testing.T, pool *pgxpool.Pool, sourceID uuid.UUID) domain.Flow {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	flow := domain.Flow{
		ID:        uuid.New(),
		SourceID:  sourceID,
		Format:    domain.ContentFormatVideo,
		Video:     &domain.VideoEssence{FrameWidth: 1920, FrameHeight: 1080, FrameRate: "25/1"},
		CreatedBy: "testhelper",
		UpdatedBy: "testhelper",
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO flows (id, source_id, format, frame_width, frame_height, frame_rate, created_by, updated_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		flow.ID, flow.SourceID, string(flow.Format),
		flow.Video.FrameWidth, flow.Video.FrameHeight, flow.Video.FrameRate,
		flow.CreatedBy, flow.UpdatedBy, flow.CreatedAt, flow.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedFlow insert: %v", err)
	}

	return flow
}

// SeedObject creates an object row with the given key.
func SeedObject(t *testing.T, pool *pgxpool.Pool, objectID string, size int64) domain.Object {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	obj := domain.Object{ID: objectID, Size: size, CreatedAt: now}

	_, err := pool.Exec(ctx,
		`INSERT INTO objects (id, size, created_at) VALUES ($1, $2, $3)`,
		obj.ID, obj.Size, obj.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedObject insert: %v", err)
	}

	return obj
}
