package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/mediagrid/timestore/internal/adapter/filestore"
	"github.com/mediagrid/timestore/internal/adapter/postgres"
	"github.com/mediagrid/timestore/internal/adapter/postgres/deletionrequest"
	"github.com/mediagrid/timestore/internal/adapter/postgres/flow"
	"github.com/mediagrid/timestore/internal/adapter/postgres/object"
	"github.com/mediagrid/timestore/internal/adapter/postgres/reference"
	"github.com/mediagrid/timestore/internal/adapter/postgres/segment"
	"github.com/mediagrid/timestore/internal/adapter/postgres/source"
	"github.com/mediagrid/timestore/internal/adapter/postgres/subscription"
	"github.com/mediagrid/timestore/internal/adapter/postgres/tag"
	"github.com/mediagrid/timestore/internal/config"
	"github.com/mediagrid/timestore/internal/service/catalog"
	"github.com/mediagrid/timestore/internal/service/deletion"
	"github.com/mediagrid/timestore/internal/service/events"
	"github.com/mediagrid/timestore/internal/service/reftracker"
	"github.com/mediagrid/timestore/internal/transport/rest"
	"github.com/mediagrid/timestore/migrations"
)

// Run is the application entry point. It wires configuration, storage,
// services and the HTTP server, then blocks until ctx is canceled or the
// server fails.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting timestore",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, cfg.Database.DSN, migrations.FS); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied")
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	clock := clockwork.NewRealClock()

	store, err := filestore.New(cfg.ObjectStore, clock)
	if err != nil {
		return err
	}

	sourceRepo := source.New(pool)
	flowRepo := flow.New(pool)
	segmentRepo := segment.New(pool)
	objectRepo := object.New(pool)
	tagRepo := tag.New(pool)
	refRepo := reference.New(pool)
	requestRepo := deletionrequest.New(pool)
	subRepo := subscription.New(pool)
	txManager := postgres.NewTxManager(pool)

	dispatcher := events.NewDispatcher(logger, subRepo, events.NewHTTPSender(cfg.Webhook), cfg.Webhook)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	engine := deletion.NewEngine(logger, requestRepo, segmentRepo, flowRepo, refRepo,
		objectRepo, store, txManager, dispatcher, clock, cfg.Deletion)
	engine.Start(ctx)
	defer engine.Stop()
	if err := engine.Resume(ctx); err != nil {
		logger.Error("resuming deletion requests failed", slog.String("error", err.Error()))
	}

	catalogSvc := catalog.NewService(logger, sourceRepo, flowRepo, segmentRepo, objectRepo,
		tagRepo, refRepo, txManager, dispatcher, store, cfg.Catalog, cfg.ObjectStore)
	refSvc := reftracker.NewService(logger, refRepo, objectRepo, txManager)

	router := rest.NewRouter(rest.Handlers{
		Health:        rest.NewHealthHandler(pool, BuildVersion()),
		Sources:       rest.NewSourceHandler(catalogSvc, logger),
		Flows:         rest.NewFlowHandler(catalogSvc, logger),
		Segments:      rest.NewSegmentHandler(catalogSvc, logger),
		Objects:       rest.NewObjectHandler(catalogSvc, logger),
		Tags:          rest.NewTagHandler(catalogSvc, logger),
		Deletion:      rest.NewDeletionHandler(engine, logger),
		Subscriptions: rest.NewSubscriptionHandler(dispatcher, logger),
		Admin:         rest.NewAdminHandler(engine, refSvc, logger),
	}, logger)
	server := rest.NewServer(cfg.Server, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return nil
}
