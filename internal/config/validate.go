package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}

	if err := c.Catalog.validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := c.Deletion.validate(); err != nil {
		return fmt.Errorf("deletion: %w", err)
	}
	if err := c.Webhook.validate(); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}

	return nil
}

func (c *CatalogConfig) validate() error {
	if c.BatchChunkSize <= 0 {
		return fmt.Errorf("batch_chunk_size must be > 0 (got %d)", c.BatchChunkSize)
	}
	if c.MaxBatchItems < c.BatchChunkSize {
		return fmt.Errorf("max_batch_items must be >= batch_chunk_size (got %d < %d)", c.MaxBatchItems, c.BatchChunkSize)
	}
	if c.DefaultPageLimit <= 0 || c.MaxPageLimit < c.DefaultPageLimit {
		return fmt.Errorf("page limits must satisfy 0 < default <= max (got %d, %d)", c.DefaultPageLimit, c.MaxPageLimit)
	}
	return nil
}

func (c *DeletionConfig) validate() error {
	if c.SyncThreshold < 0 {
		return fmt.Errorf("sync_threshold must be >= 0 (got %d)", c.SyncThreshold)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0 (got %d)", c.Workers)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be > 0 (got %d)", c.QueueSize)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be > 0 (got %d)", c.PageSize)
	}
	if c.RequeueInterval <= 0 {
		return fmt.Errorf("requeue_interval must be > 0 (got %s)", c.RequeueInterval)
	}
	return nil
}

func (c *WebhookConfig) validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be > 0 (got %d)", c.MaxAttempts)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", c.Timeout)
	}
	if c.Workers <= 0 || c.QueueSize <= 0 {
		return fmt.Errorf("workers and queue_size must be > 0 (got %d, %d)", c.Workers, c.QueueSize)
	}
	return nil
}
