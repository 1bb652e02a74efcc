package middleware

import (
	"net/http"

	"github.com/mediagrid/timestore/pkg/ctxutil"
)

const actorHeader = "X-Actor"

// Actor records the calling identity from the X-Actor header in the request
// context. Mutations fall back to "anonymous" for audit columns.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := r.Header.Get(actorHeader)
		if actor == "" {
			actor = "anonymous"
		}
		next.ServeHTTP(w, r.WithContext(ctxutil.WithActor(r.Context(), actor)))
	})
}
