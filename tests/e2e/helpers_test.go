//go:build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

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
	"github.com/mediagrid/timestore/internal/adapter/postgres/testhelper"
	"github.com/mediagrid/timestore/internal/config"
	"github.com/mediagrid/timestore/internal/service/catalog"
	"github.com/mediagrid/timestore/internal/service/deletion"
	"github.com/mediagrid/timestore/internal/service/events"
	"github.com/mediagrid/timestore/internal/service/reftracker"
	"github.com/mediagrid/timestore/internal/transport/rest"
)

// testServer wraps the full-stack HTTP server for E2E tests.
type testServer struct {
	URL    string
	Client *http.Client
	Pool   *pgxpool.Pool
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct{ t *testing.T }

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// setupTestServer bootstraps the full application stack backed by a real
// PostgreSQL container (shared via testhelper).
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	pool := testhelper.SetupTestDB(t)

	logger := slog.New(slog.NewTextHandler(testLogWriter{t}, nil))
	txm := postgres.NewTxManager(pool)
	clock := clockwork.NewRealClock()

	sourceRepo := source.New(pool)
	flowRepo := flow.New(pool)
	segmentRepo := segment.New(pool)
	objectRepo := object.New(pool)
	tagRepo := tag.New(pool)
	refRepo := reference.New(pool)
	requestRepo := deletionrequest.New(pool)
	subRepo := subscription.New(pool)

	storeCfg := config.ObjectStoreConfig{
		RootDir:     t.TempDir(),
		BaseURL:     "http://store.local/bytes",
		Secret:      "e2e-signing-secret",
		DownloadTTL: time.Hour,
	}
	store, err := filestore.New(storeCfg, clock)
	require.NoError(t, err)

	webhookCfg := config.WebhookConfig{
		Timeout:        2 * time.Second,
		MaxAttempts:    2,
		InitialBackoff: 10 * time.Millisecond,
		Workers:        2,
		QueueSize:      64,
	}
	dispatcher := events.NewDispatcher(logger, subRepo, events.NewHTTPSender(webhookCfg), webhookCfg)

	deletionCfg := config.DeletionConfig{
		SyncThreshold:   100,
		Workers:         2,
		QueueSize:       16,
		PageSize:        10,
		RequeueInterval: time.Second,
	}
	engine := deletion.NewEngine(logger, requestRepo, segmentRepo, flowRepo, refRepo,
		objectRepo, store, txm, dispatcher, clock, deletionCfg)

	catalogCfg := config.CatalogConfig{
		BatchChunkSize:   2,
		MaxBatchItems:    100,
		DefaultPageLimit: 100,
		MaxPageLimit:     500,
	}
	catalogSvc := catalog.NewService(logger, sourceRepo, flowRepo, segmentRepo, objectRepo,
		tagRepo, refRepo, txm, dispatcher, store, catalogCfg, storeCfg)
	refSvc := reftracker.NewService(logger, refRepo, objectRepo, txm)

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx)
	engine.Start(ctx)
	t.Cleanup(func() {
		engine.Stop()
		dispatcher.Stop()
		cancel()
	})

	router := rest.NewRouter(rest.Handlers{
		Health:        rest.NewHealthHandler(pool, "e2e"),
		Sources:       rest.NewSourceHandler(catalogSvc, logger),
		Flows:         rest.NewFlowHandler(catalogSvc, logger),
		Segments:      rest.NewSegmentHandler(catalogSvc, logger),
		Objects:       rest.NewObjectHandler(catalogSvc, logger),
		Tags:          rest.NewTagHandler(catalogSvc, logger),
		Deletion:      rest.NewDeletionHandler(engine, logger),
		Subscriptions: rest.NewSubscriptionHandler(dispatcher, logger),
		Admin:         rest.NewAdminHandler(engine, refSvc, logger),
	}, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{
		URL:    srv.URL,
		Client: srv.Client(),
		Pool:   pool,
	}
}

// doJSON performs an HTTP request with an optional JSON body and decodes the
// JSON response into out (skipped when out is nil or the body is empty).
func (ts *testServer) doJSON(t *testing.T, method, path string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor", "e2e-suite")

	resp, err := ts.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp.StatusCode
}

func (ts *testServer) createSource(t *testing.T, format string) string {
	t.Helper()

	var resp map[string]any
	status := ts.doJSON(t, http.MethodPost, "/sources", map[string]any{"format": format}, &resp)
	require.Equal(t, http.StatusCreated, status, "create source: %v", resp)
	return resp["id"].(string)
}

func (ts *testServer) createVideoFlow(t *testing.T, sourceID string) string {
	t.Helper()

	var resp map[string]any
	status := ts.doJSON(t, http.MethodPost, "/flows", map[string]any{
		"source_id": sourceID,
		"format":    "video",
		"video": map[string]any{
			"frame_width":  1920,
			"frame_height": 1080,
			"frame_rate":   "25/1",
		},
	}, &resp)
	require.Equal(t, http.StatusCreated, status, "create flow: %v", resp)
	return resp["id"].(string)
}

func (ts *testServer) createSegment(t *testing.T, flowID, objectID, timerange string) string {
	t.Helper()

	var resp map[string]any
	status := ts.doJSON(t, http.MethodPost, fmt.Sprintf("/flows/%s/segments", flowID), map[string]any{
		"object_id":   objectID,
		"timerange":   timerange,
		"object_size": int64(1024),
	}, &resp)
	require.Equal(t, http.StatusCreated, status, "create segment: %v", resp)
	return resp["id"].(string)
}

func uniqueObjectKey(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}
