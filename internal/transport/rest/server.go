package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mediagrid/timestore/internal/config"
	"github.com/mediagrid/timestore/internal/domain"
	"github.com/mediagrid/timestore/internal/transport/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health        *HealthHandler
	Sources       *SourceHandler
	Flows         *FlowHandler
	Segments      *SegmentHandler
	Objects       *ObjectHandler
	Tags          *TagHandler
	Deletion      *DeletionHandler
	Subscriptions *SubscriptionHandler
	Admin         *AdminHandler
}

// NewRouter builds the API routing table.
func NewRouter(h Handlers, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health.Live)
	mux.HandleFunc("GET /readyz", h.Health.Ready)
	mux.HandleFunc("GET /health", h.Health.Health)

	mux.HandleFunc("POST /sources", h.Sources.Create)
	mux.HandleFunc("POST /sources/batch", h.Sources.CreateBatch)
	mux.HandleFunc("GET /sources", h.Sources.List)
	mux.HandleFunc("GET /sources/{id}", h.Sources.Get)
	mux.HandleFunc("PATCH /sources/{id}", h.Sources.Update)
	mux.HandleFunc("DELETE /sources/{id}", h.Sources.Delete)
	mux.HandleFunc("PUT /sources/{id}/collection", h.Sources.SetCollection)
	mux.HandleFunc("GET /sources/{id}/tags", h.Tags.List(domain.EntityTypeSource))
	mux.HandleFunc("PUT /sources/{id}/tags/{name}", h.Tags.Set(domain.EntityTypeSource))
	mux.HandleFunc("DELETE /sources/{id}/tags/{name}", h.Tags.Delete(domain.EntityTypeSource))

	mux.HandleFunc("POST /flows", h.Flows.Create)
	mux.HandleFunc("POST /flows/batch", h.Flows.CreateBatch)
	mux.HandleFunc("GET /flows", h.Flows.List)
	mux.HandleFunc("GET /flows/{id}", h.Flows.Get)
	mux.HandleFunc("PATCH /flows/{id}", h.Flows.Update)
	mux.HandleFunc("DELETE /flows/{id}", h.Deletion.DeleteFlow)
	mux.HandleFunc("PUT /flows/{id}/collection", h.Flows.SetCollection)
	mux.HandleFunc("GET /flows/{id}/tags", h.Tags.List(domain.EntityTypeFlow))
	mux.HandleFunc("PUT /flows/{id}/tags/{name}", h.Tags.Set(domain.EntityTypeFlow))
	mux.HandleFunc("DELETE /flows/{id}/tags/{name}", h.Tags.Delete(domain.EntityTypeFlow))

	mux.HandleFunc("POST /flows/{flowId}/segments", h.Segments.Create)
	mux.HandleFunc("GET /flows/{flowId}/segments", h.Segments.List)
	mux.HandleFunc("DELETE /flows/{flowId}/segments", h.Deletion.DeleteSegments)
	mux.HandleFunc("GET /segments/{id}", h.Segments.Get)
	mux.HandleFunc("DELETE /segments/{id}", h.Segments.Delete)
	mux.HandleFunc("GET /segments/{id}/tags", h.Tags.List(domain.EntityTypeSegment))
	mux.HandleFunc("PUT /segments/{id}/tags/{name}", h.Tags.Set(domain.EntityTypeSegment))
	mux.HandleFunc("DELETE /segments/{id}/tags/{name}", h.Tags.Delete(domain.EntityTypeSegment))

	mux.HandleFunc("POST /objects", h.Objects.Register)
	mux.HandleFunc("POST /objects/batch", h.Objects.RegisterBatch)
	mux.HandleFunc("GET /objects/{id}", h.Objects.Get)
	mux.HandleFunc("POST /objects/{id}/upload", h.Objects.UploadHandle)
	mux.HandleFunc("GET /objects/{id}/download", h.Objects.DownloadHandle)

	mux.HandleFunc("GET /deletion-requests/{id}", h.Deletion.Status)

	mux.HandleFunc("POST /subscriptions", h.Subscriptions.Create)
	mux.HandleFunc("GET /subscriptions", h.Subscriptions.List)
	mux.HandleFunc("GET /subscriptions/{id}", h.Subscriptions.Get)
	mux.HandleFunc("DELETE /subscriptions/{id}", h.Subscriptions.Delete)

	mux.HandleFunc("GET /admin/deletion/threshold", h.Admin.GetThreshold)
	mux.HandleFunc("PUT /admin/deletion/threshold", h.Admin.SetThreshold)
	mux.HandleFunc("POST /admin/references/reconcile", h.Admin.Reconcile)
	mux.HandleFunc("GET /admin/objects/orphans", h.Admin.Orphans)

	chain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Actor,
		middleware.Logger(logger),
	)
	return chain(mux)
}

// NewServer wraps the router in an http.Server with the configured timeouts.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
