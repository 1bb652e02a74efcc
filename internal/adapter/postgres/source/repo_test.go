package source_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediagrid/timestore/internal/adapter/postgres/source"
	"github.com/mediagrid/timestore/internal/adapter/postgres/testhelper"
	"github.com/mediagrid/timestore/internal/domain"
)

func newRepo(t *testing.T) (*source.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return source.New(pool), pool
}

func newSource(format domain.ContentFormat) domain.Source {
	now := time.Now().UTC().Truncate(time.Microsecond)
	label := "src-" + uuid.New().String()[:8]
	return domain.Source{
		ID:        uuid.New(),
		Format:    format,
		Label:     &label,
		CreatedBy: "tester",
		UpdatedBy: "tester",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRepo_Create_AndGetByID(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	want := newSource(domain.ContentFormatVideo)
	if _, err := repo.Create(ctx, want); err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	got, err := repo.GetByID(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("ID mismatch: got %s, want %s", got.ID, want.ID)
	}
	if got.Format != domain.ContentFormatVideo {
		t.Errorf("Format mismatch: got %s", got.Format)
	}
	if got.Label == nil || *got.Label != *want.Label {
		t.Errorf("Label mismatch: got %v, want %v", got.Label, want.Label)
	}
	if got.Deleted {
		t.Error("new source must not be deleted")
	}
}

func TestRepo_Create_DuplicateID(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	s := newSource(domain.ContentFormatAudio)
	if _, err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	_, err := repo.Create(ctx, s)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRepo_GetByID_NotFound(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	_, err := repo.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepo_SoftDelete_HidesFromGet(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	s := newSource(domain.ContentFormatVideo)
	if _, err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	if err := repo.SoftDelete(ctx, s.ID, "deleter"); err != nil {
		t.Fatalf("SoftDelete: unexpected error: %v", err)
	}

	if _, err := repo.GetByID(ctx, s.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Tombstone remains readable.
	got, err := repo.GetByIDAny(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByIDAny: unexpected error: %v", err)
	}
	if !got.Deleted {
		t.Error("expected Deleted=true")
	}
	if got.DeletedBy == nil || *got.DeletedBy != "deleter" {
		t.Errorf("DeletedBy mismatch: got %v", got.DeletedBy)
	}

	// Second delete reports not found.
	if err := repo.SoftDelete(ctx, s.ID, "deleter"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
}

func TestRepo_Update_PartialAndClear(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	s := newSource(domain.ContentFormatVideo)
	if _, err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	desc := "a description"
	got, err := repo.Update(ctx, s.ID, domain.SourceUpdateParams{Description: &desc}, "editor")
	if err != nil {
		t.Fatalf("Update: unexpected error: %v", err)
	}
	if got.Description == nil || *got.Description != desc {
		t.Errorf("Description mismatch: got %v", got.Description)
	}
	if got.Label == nil || *got.Label != *s.Label {
		t.Errorf("Label should be untouched: got %v", got.Label)
	}
	if got.UpdatedBy != "editor" {
		t.Errorf("UpdatedBy mismatch: got %s", got.UpdatedBy)
	}

	// Pointer to empty string clears the field.
	empty := ""
	got, err = repo.Update(ctx, s.ID, domain.SourceUpdateParams{Label: &empty}, "editor")
	if err != nil {
		t.Fatalf("Update: unexpected error: %v", err)
	}
	if got.Label != nil {
		t.Errorf("Label should be cleared: got %v", got.Label)
	}
}

func TestRepo_List_Filters(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	video := newSource(domain.ContentFormatVideo)
	audio := newSource(domain.ContentFormatAudio)
	for _, s := range []domain.Source{video, audio} {
		if _, err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create: unexpected error: %v", err)
		}
	}

	format := domain.ContentFormatAudio
	got, err := repo.List(ctx, domain.SourceFilter{Format: &format, Label: audio.Label, Limit: 10})
	if err != nil {
		t.Fatalf("List: unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != audio.ID {
		t.Fatalf("expected exactly the audio source, got %d rows", len(got))
	}
}

func TestRepo_Collection_RoundTrip(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	m1 := newSource(domain.ContentFormatVideo)
	m2 := newSource(domain.ContentFormatAudio)
	coll := newSource(domain.ContentFormatMulti)
	for _, s := range []domain.Source{m1, m2, coll} {
		if _, err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create: unexpected error: %v", err)
		}
	}

	if err := repo.ReplaceCollection(ctx, coll.ID, []uuid.UUID{m1.ID, m2.ID}); err != nil {
		t.Fatalf("ReplaceCollection: unexpected error: %v", err)
	}

	got, err := repo.GetByID(ctx, coll.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if len(got.Collection) != 2 {
		t.Fatalf("expected 2 members, got %d", len(got.Collection))
	}

	if err := repo.ReplaceCollection(ctx, coll.ID, []uuid.UUID{m2.ID}); err != nil {
		t.Fatalf("ReplaceCollection: unexpected error: %v", err)
	}
	got, err = repo.GetByID(ctx, coll.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if len(got.Collection) != 1 || got.Collection[0] != m2.ID {
		t.Fatalf("expected only m2, got %v", got.Collection)
	}
}

func TestRepo_CreateBatch(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	batch := []domain.Source{
		newSource(domain.ContentFormatVideo),
		newSource(domain.ContentFormatAudio),
		newSource(domain.ContentFormatData),
	}
	if err := repo.CreateBatch(ctx, batch); err != nil {
		t.Fatalf("CreateBatch: unexpected error: %v", err)
	}

	for _, s := range batch {
		if _, err := repo.GetByID(ctx, s.ID); err != nil {
			t.Errorf("GetByID(%s): unexpected error: %v", s.ID, err)
		}
	}

	// A duplicate anywhere fails the whole chunk.
	dup := []domain.Source{newSource(domain.ContentFormatVideo), batch[0]}
	if err := repo.CreateBatch(ctx, dup); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := repo.GetByID(ctx, dup[0].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("chunk must be atomic: first row should not exist, got %v", err)
	}
}
