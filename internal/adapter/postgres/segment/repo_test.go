package segment_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediagrid/timestore/internal/adapter/postgres/segment"
	"github.com/mediagrid/timestore/internal/adapter/postgres/testhelper"
	"github.com/mediagrid/timestore/internal/domain"
)

func newRepo(t *testing.T) (*segment.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return segment.New(pool), pool
}

func mustRange(t *testing.T, s string) domain.TimeRange {
	t.Helper()
	r, err := domain.ParseTimeRange(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return r
}

func newSegment(t *testing.T, flowID uuid.UUID, objectID, rng string) domain.Segment {
	t.Helper()
	return domain.Segment{
		ID:          uuid.New(),
		FlowID:      flowID,
		ObjectID:    objectID,
		Range:       mustRange(t, rng),
		StoragePath: "store/" + objectID,
		CreatedBy:   "tester",
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

// seedFixture creates a source, flow and object to hang segments on.
func seedFixture(t *testing.T, pool *pgxpool.Pool) (uuid.UUID, string) {
	t.Helper()
	src := testhelper.SeedSource(t, pool)
	fl := testhelper.SeedFlow(t, pool, src.ID)
	obj := testhelper.SeedObject(t, pool, "obj-"+uuid.New().String()[:8], 1024)
	return fl.ID, obj.ID
}

func TestRepo_Create_AndGetByID(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	flowID, objID := seedFixture(t, pool)
	want := newSegment(t, flowID, objID, "[0:0_10:0)")
	if _, err := repo.Create(ctx, want); err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	got, err := repo.GetByID(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if got.FlowID != flowID || got.ObjectID != objID {
		t.Errorf("identity mismatch: %+v", got)
	}
	if got.Range.String() != "[0:0_10:0)" {
		t.Errorf("range mismatch: got %s", got.Range)
	}
}

func TestRepo_Create_DuplicateTimerange(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	flowID, objID := seedFixture(t, pool)
	first := newSegment(t, flowID, objID, "[0:0_10:0)")
	if _, err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	dup := newSegment(t, flowID, objID, "[0:0_10:0)")
	if _, err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Deleting the live row frees the timerange for reuse.
	if _, err := repo.SoftDelete(ctx, first.ID, "tester"); err != nil {
		t.Fatalf("SoftDelete: unexpected error: %v", err)
	}
	if _, err := repo.Create(ctx, dup); err != nil {
		t.Fatalf("Create after delete: unexpected error: %v", err)
	}
}

func TestRepo_ListByRange_Overlap(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	flowID, objID := seedFixture(t, pool)
	ranges := []string{"[0:0_10:0)", "[10:0_20:0)", "[20:0_30:0)"}
	for _, r := range ranges {
		if _, err := repo.Create(ctx, newSegment(t, flowID, objID, r)); err != nil {
			t.Fatalf("Create %s: unexpected error: %v", r, err)
		}
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"[5:0_15:0)", []string{"[0:0_10:0)", "[10:0_20:0)"}},
		{"[10:0_10:0]", []string{"[10:0_20:0)"}}, // instant on a boundary
		{"[30:0_40:0)", []string{}},              // touching an exclusive end does not overlap
		{"_", ranges},                            // eternity matches everything
		{"()", []string{}},                       // empty matches nothing
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			got, next, err := repo.ListByRange(ctx, flowID, mustRange(t, tc.query), domain.SegmentQuery{Limit: 10})
			if err != nil {
				t.Fatalf("ListByRange: unexpected error: %v", err)
			}
			if next != "" {
				t.Errorf("unexpected continuation token %q", next)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d segments, want %d", len(got), len(tc.want))
			}
			for i, s := range got {
				if s.Range.String() != tc.want[i] {
					t.Errorf("segment %d: got %s, want %s", i, s.Range, tc.want[i])
				}
			}
		})
	}
}

func TestRepo_ListByRange_Paging(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	flowID, objID := seedFixture(t, pool)
	const total = 7
	for i := 0; i < total; i++ {
		rng := fmt.Sprintf("[%d:0_%d:0)", i*10, i*10+10)
		if _, err := repo.Create(ctx, newSegment(t, flowID, objID, rng)); err != nil {
			t.Fatalf("Create %s: unexpected error: %v", rng, err)
		}
	}

	var (
		seen   []string
		cursor string
		pages  int
	)
	for {
		got, next, err := repo.ListByRange(ctx, flowID, domain.EternityRange(), domain.SegmentQuery{Limit: 3, Cursor: cursor})
		if err != nil {
			t.Fatalf("page %d: unexpected error: %v", pages, err)
		}
		for _, s := range got {
			seen = append(seen, s.Range.String())
		}
		pages++
		if next == "" {
			break
		}
		cursor = next
	}

	if pages != 3 {
		t.Errorf("expected 3 pages, got %d", pages)
	}
	if len(seen) != total {
		t.Fatalf("expected %d segments across pages, got %d", total, len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i-1] >= seen[i] {
			t.Errorf("ordering violated between %s and %s", seen[i-1], seen[i])
		}
	}
}

func TestRepo_ListByRange_OpenStartSortsFirst(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	flowID, objID := seedFixture(t, pool)
	if _, err := repo.Create(ctx, newSegment(t, flowID, objID, "[5:0_10:0)")); err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}
	if _, err := repo.Create(ctx, newSegment(t, flowID, objID, "_5:0)")); err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	got, _, err := repo.ListByRange(ctx, flowID, domain.EternityRange(), domain.SegmentQuery{Limit: 10})
	if err != nil {
		t.Fatalf("ListByRange: unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(got))
	}
	if got[0].Range.Start != nil {
		t.Errorf("open-start segment must sort first, got %s", got[0].Range)
	}
}

func TestRepo_CountInRange(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	flowID, objID := seedFixture(t, pool)
	for _, r := range []string{"[0:0_10:0)", "[10:0_20:0)"} {
		if _, err := repo.Create(ctx, newSegment(t, flowID, objID, r)); err != nil {
			t.Fatalf("Create: unexpected error: %v", err)
		}
	}

	count, err := repo.CountInRange(ctx, flowID, mustRange(t, "[0:0_15:0)"))
	if err != nil {
		t.Fatalf("CountInRange: unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2, got %d", count)
	}

	count, err = repo.CountInRange(ctx, flowID, mustRange(t, "[100:0_200:0)"))
	if err != nil {
		t.Fatalf("CountInRange: unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0, got %d", count)
	}
}

func TestRepo_SoftDelete_Idempotent(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	flowID, objID := seedFixture(t, pool)
	s := newSegment(t, flowID, objID, "[0:0_10:0)")
	if _, err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	deleted, err := repo.SoftDelete(ctx, s.ID, "tester")
	if err != nil {
		t.Fatalf("SoftDelete: unexpected error: %v", err)
	}
	if !deleted {
		t.Fatal("expected first delete to report true")
	}

	deleted, err = repo.SoftDelete(ctx, s.ID, "tester")
	if err != nil {
		t.Fatalf("SoftDelete repeat: unexpected error: %v", err)
	}
	if deleted {
		t.Fatal("expected repeat delete to report false")
	}

	// Deleted rows drop out of live listings.
	got, _, err := repo.ListByRange(ctx, flowID, domain.EternityRange(), domain.SegmentQuery{Limit: 10})
	if err != nil {
		t.Fatalf("ListByRange: unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no live segments, got %d", len(got))
	}
}
