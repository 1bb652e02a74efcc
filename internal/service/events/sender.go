package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sethvargo/go-retry"

	"github.com/mediagrid/timestore/internal/config"
	"github.com/mediagrid/timestore/internal/domain"
)

// HTTPSender posts events as JSON with bounded retries on transport errors
// and 5xx responses.
type HTTPSender struct {
	client *http.Client
	cfg    config.WebhookConfig
}

// NewHTTPSender creates a webhook sender. The per-attempt timeout comes from
// the config; pass a custom client only in tests.
func NewHTTPSender(cfg config.WebhookConfig) *HTTPSender {
	return &HTTPSender{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// Send delivers one event to url, retrying transient failures.
func (s *HTTPSender) Send(ctx context.Context, url string, e domain.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	attempts := uint64(s.cfg.MaxAttempts)
	if attempts > 0 {
		attempts--
	}
	backoff := retry.WithMaxRetries(attempts, retry.NewExponential(s.cfg.InitialBackoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("webhook returned %d", resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			// Client errors are the subscriber's problem; retrying changes
			// nothing.
			return fmt.Errorf("webhook returned %d", resp.StatusCode)
		}
		return nil
	})
}
