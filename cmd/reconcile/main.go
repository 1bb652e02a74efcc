// Command reconcile rebuilds the object reference counters from the live
// segment table. It is intended to be invoked by an external cron job or
// by an operator after incident recovery, not as an in-process goroutine.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/mediagrid/timestore/internal/adapter/postgres"
	"github.com/mediagrid/timestore/internal/adapter/postgres/object"
	"github.com/mediagrid/timestore/internal/adapter/postgres/reference"
	"github.com/mediagrid/timestore/internal/app"
	"github.com/mediagrid/timestore/internal/config"
	"github.com/mediagrid/timestore/internal/service/reftracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	refRepo := reference.New(pool)
	objectRepo := object.New(pool)
	tx := postgres.NewTxManager(pool)

	svc := reftracker.NewService(logger, refRepo, objectRepo, tx)

	if err := svc.Reconcile(ctx); err != nil {
		logger.Error("reconcile failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	orphans, err := svc.ListOrphans(ctx, 100)
	if err != nil {
		logger.Error("list orphans failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("reconcile completed", slog.Int("orphans", len(orphans)))
}
