package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Log         LogConfig         `yaml:"log"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Deletion    DeletionConfig    `yaml:"deletion"`
	Webhook     WebhookConfig     `yaml:"webhook"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
}

// ServerConfig holds HTTP server settings for the health/admin surface.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"   env:"DATABASE_MIGRATE_ON_START"   env-default:"true"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CatalogConfig holds catalog behavior settings.
type CatalogConfig struct {
	// BatchChunkSize is the sub-batch size for bulk create endpoints. Each
	// chunk is inserted atomically; failures do not roll back other chunks.
	BatchChunkSize int `yaml:"batch_chunk_size" env:"CATALOG_BATCH_CHUNK_SIZE" env-default:"100"`
	// MaxBatchItems caps a single bulk request.
	MaxBatchItems int `yaml:"max_batch_items" env:"CATALOG_MAX_BATCH_ITEMS" env-default:"1000"`
	// DefaultPageLimit/MaxPageLimit bound segment range-query pages.
	DefaultPageLimit int `yaml:"default_page_limit" env:"CATALOG_DEFAULT_PAGE_LIMIT" env-default:"100"`
	MaxPageLimit     int `yaml:"max_page_limit"     env:"CATALOG_MAX_PAGE_LIMIT"     env-default:"500"`
}

// DeletionConfig holds DeletionEngine settings.
type DeletionConfig struct {
	// SyncThreshold is the initial segment count at or below which a
	// deletion request runs synchronously. Runtime-mutable via the engine.
	SyncThreshold int `yaml:"sync_threshold" env:"DELETION_SYNC_THRESHOLD" env-default:"500"`
	// Workers is the size of the background deletion worker pool.
	Workers int `yaml:"workers" env:"DELETION_WORKERS" env-default:"4"`
	// QueueSize bounds the pending background deletion queue.
	QueueSize int `yaml:"queue_size" env:"DELETION_QUEUE_SIZE" env-default:"64"`
	// PageSize is how many segments a deletion task soft-deletes per batch.
	PageSize int `yaml:"page_size" env:"DELETION_PAGE_SIZE" env-default:"200"`
	// RequeueInterval is how often requests still pending (for example
	// deferred on a full queue) are swept back onto the worker queue.
	RequeueInterval time.Duration `yaml:"requeue_interval" env:"DELETION_REQUEUE_INTERVAL" env-default:"30s"`
}

// WebhookConfig holds event delivery settings.
type WebhookConfig struct {
	Timeout        time.Duration `yaml:"timeout"         env:"WEBHOOK_TIMEOUT"         env-default:"5s"`
	MaxAttempts    int           `yaml:"max_attempts"    env:"WEBHOOK_MAX_ATTEMPTS"    env-default:"3"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"WEBHOOK_INITIAL_BACKOFF" env-default:"500ms"`
	Workers        int           `yaml:"workers"         env:"WEBHOOK_WORKERS"         env-default:"4"`
	QueueSize      int           `yaml:"queue_size"      env:"WEBHOOK_QUEUE_SIZE"      env-default:"256"`
}

// ObjectStoreConfig holds object store settings.
type ObjectStoreConfig struct {
	// RootDir is where the local store keeps object bytes.
	RootDir string `yaml:"root_dir" env:"OBJECT_STORE_ROOT_DIR" env-default:"./data/objects"`
	// BaseURL prefixes issued upload/download handles.
	BaseURL string `yaml:"base_url" env:"OBJECT_STORE_BASE_URL" env-default:"http://localhost:8080/bytes"`
	// Secret signs issued handles.
	Secret string `yaml:"secret" env:"OBJECT_STORE_SECRET" env-default:"dev-secret"`
	// DownloadTTL is the validity window for issued download handles.
	DownloadTTL time.Duration `yaml:"download_ttl" env:"OBJECT_STORE_DOWNLOAD_TTL" env-default:"1h"`
}
