package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/domain"
)

type tagFilterService interface {
	FilterByTag(ctx context.Context, entityType domain.EntityType, name, value string) ([]string, error)
	FilterByTagExists(ctx context.Context, entityType domain.EntityType, name string, exists bool) ([]string, error)
}

// tagFilters collects tag.<name>=<value> and tag_exists.<name>=<bool> query
// parameters.
type tagFilters struct {
	values map[string]string
	exists map[string]bool
}

func parseTagFilters(r *http.Request) tagFilters {
	f := tagFilters{values: map[string]string{}, exists: map[string]bool{}}
	for key, vals := range r.URL.Query() {
		if len(vals) == 0 {
			continue
		}
		switch {
		case strings.HasPrefix(key, "tag."):
			f.values[strings.TrimPrefix(key, "tag.")] = vals[0]
		case strings.HasPrefix(key, "tag_exists."):
			b, err := strconv.ParseBool(vals[0])
			if err != nil {
				continue
			}
			f.exists[strings.TrimPrefix(key, "tag_exists.")] = b
		}
	}
	return f
}

func (f tagFilters) empty() bool {
	return len(f.values) == 0 && len(f.exists) == 0
}

// matchingIDs resolves the filters to the intersection of per-predicate id
// sets, for the caller to constrain a list query with before paging applies.
// Returns nil when no predicates were given; an empty non-nil slice means no
// entity satisfies every predicate.
func (f tagFilters) matchingIDs(ctx context.Context, svc tagFilterService, entityType domain.EntityType) ([]uuid.UUID, error) {
	if f.empty() {
		return nil, nil
	}

	var result map[string]bool
	intersect := func(ids []string) {
		set := make(map[string]bool, len(ids))
		for _, id := range ids {
			if result == nil || result[id] {
				set[id] = true
			}
		}
		result = set
	}

	for name, value := range f.values {
		ids, err := svc.FilterByTag(ctx, entityType, name, value)
		if err != nil {
			return nil, err
		}
		intersect(ids)
	}
	for name, exists := range f.exists {
		ids, err := svc.FilterByTagExists(ctx, entityType, name, exists)
		if err != nil {
			return nil, err
		}
		intersect(ids)
	}

	out := make([]uuid.UUID, 0, len(result))
	for raw := range result {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
