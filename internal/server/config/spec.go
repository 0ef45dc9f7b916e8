package config

import "time"

// ServerConfig is the root configuration for peptrackr-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server" yaml:"server"`
	Storage StorageSection `koanf:"storage" yaml:"storage"`
	Log     LogSection     `koanf:"log" yaml:"log"`
	Metrics MetricsSection `koanf:"metrics" yaml:"metrics"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http" yaml:"http"`
	RESP RESPConfig `koanf:"resp" yaml:"resp"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr" yaml:"addr"`
	TLSCertFile string `koanf:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file" yaml:"tls_key_file"`

	// APIPrefix is prepended to the store and backup routes.
	APIPrefix string `koanf:"api_prefix" yaml:"api_prefix"`

	// CORSOrigins lists allowed origins; ["*"] allows any.
	CORSOrigins []string `koanf:"cors_origins" yaml:"cors_origins"`

	// MaxBodyBytes bounds request bodies (PUT values, backup imports).
	MaxBodyBytes int64 `koanf:"max_body_bytes" yaml:"max_body_bytes"`

	ReadTimeout     time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`

	RateLimit RateLimitConfig `koanf:"rate_limit" yaml:"rate_limit"`
}

// RESPConfig configures the Redis protocol server.
type RESPConfig struct {
	Enabled        bool          `koanf:"enabled" yaml:"enabled"`
	Addr           string        `koanf:"addr" yaml:"addr"`
	MaxConnections int           `koanf:"max_connections" yaml:"max_connections"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" yaml:"idle_timeout"`

	RateLimit RateLimitConfig `koanf:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig configures a per-client token bucket.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled" yaml:"enabled"`
	RPS     float64 `koanf:"rps" yaml:"rps"`
	Burst   int     `koanf:"burst" yaml:"burst"`
}

// StorageSection configures the storage backend.
type StorageSection struct {
	// Engine is one of "sqlite", "badger" or "memory".
	Engine string `koanf:"engine" yaml:"engine"`

	// DSN is the SQLite database URL. The DATABASE_URL environment
	// variable overrides it.
	DSN string `koanf:"dsn" yaml:"dsn"`

	BusyTimeout  time.Duration `koanf:"busy_timeout" yaml:"busy_timeout"`
	SlowQuery    time.Duration `koanf:"slow_query" yaml:"slow_query"`
	MemoryShards int           `koanf:"memory_shards" yaml:"memory_shards"`

	Badger BadgerSection `koanf:"badger" yaml:"badger"`
}

// BadgerSection configures the Badger engine.
type BadgerSection struct {
	Dir            string        `koanf:"dir" yaml:"dir"`
	GCInterval     time.Duration `koanf:"gc_interval" yaml:"gc_interval"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio" yaml:"gc_discard_ratio"`
	CacheSize      int64         `koanf:"cache_size" yaml:"cache_size"`
	SyncWrites     bool          `koanf:"sync_writes" yaml:"sync_writes"`
}

// LogSection configures logging.
type LogSection struct {
	Level     string `koanf:"level" yaml:"level"`
	Format    string `koanf:"format" yaml:"format"`
	AddSource bool   `koanf:"add_source" yaml:"add_source"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" yaml:"path"`
}
