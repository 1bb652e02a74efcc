//go:build e2e

package e2e_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// webhookSink records delivered event envelopes.
type webhookSink struct {
	mu     sync.Mutex
	events []map[string]any
}

func (s *webhookSink) handler(w http.ResponseWriter, r *http.Request) {
	var e map[string]any
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *webhookSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		if t, ok := e["event_type"].(string); ok {
			out = append(out, t)
		}
	}
	return out
}

func TestE2E_WebhookDeliveryHonorsEventTypeFilter(t *testing.T) {
	ts := setupTestServer(t)

	sink := &webhookSink{}
	target := httptest.NewServer(http.HandlerFunc(sink.handler))
	defer target.Close()

	var sub map[string]any
	status := ts.doJSON(t, http.MethodPost, "/subscriptions", map[string]any{
		"url":         target.URL,
		"event_types": []string{"source.created"},
	}, &sub)
	require.Equal(t, http.StatusCreated, status, "subscribe: %v", sub)

	// One matching mutation, one filtered-out mutation.
	sourceID := ts.createSource(t, "video")
	ts.createVideoFlow(t, sourceID)

	require.Eventually(t, func() bool {
		for _, et := range sink.types() {
			if et == "source.created" {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond, "source.created should be delivered")

	// Give the dispatcher a beat, then confirm flow.created never arrived.
	time.Sleep(200 * time.Millisecond)
	assert.NotContains(t, sink.types(), "flow.created")

	// Unsubscribe stops further deliveries.
	status = ts.doJSON(t, http.MethodDelete, "/subscriptions/"+sub["id"].(string), nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	before := len(sink.types())
	ts.createSource(t, "audio")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, before, len(sink.types()))
}

func TestE2E_SubscriptionValidation(t *testing.T) {
	ts := setupTestServer(t)

	status := ts.doJSON(t, http.MethodPost, "/subscriptions", map[string]any{
		"url": "",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = ts.doJSON(t, http.MethodPost, "/subscriptions", map[string]any{
		"url":         "http://example.com/hook",
		"event_types": []string{"source.exploded"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
