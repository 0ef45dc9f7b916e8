package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:8000"
	DefaultAPIPrefix       = "/api/v1"
	DefaultMaxBodyBytes    = 10 << 20 // 10MB
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultRESPAddr           = "127.0.0.1:6379"
	DefaultRESPMaxConnections = 1024
	DefaultRESPIdleTimeout    = 5 * time.Minute

	DefaultRateLimitRPS   = 100
	DefaultRateLimitBurst = 200

	DefaultStorageEngine = "sqlite"
	DefaultDSN           = "sqlite:///./data.db"
	DefaultBusyTimeout   = 5 * time.Second
	DefaultSlowQuery     = 200 * time.Millisecond
	DefaultMemoryShards  = 16

	DefaultBadgerDir        = "data/badger"
	DefaultBadgerGCInterval = 10 * time.Minute
	DefaultBadgerGCRatio    = 0.5
	DefaultBadgerCacheSize  = 64 << 20 // 64MB

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath = "/metrics"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				APIPrefix:       DefaultAPIPrefix,
				CORSOrigins:     []string{"*"},
				MaxBodyBytes:    DefaultMaxBodyBytes,
				ReadTimeout:     DefaultReadTimeout,
				WriteTimeout:    DefaultWriteTimeout,
				IdleTimeout:     DefaultIdleTimeout,
				ShutdownTimeout: DefaultShutdownTimeout,
				RateLimit: RateLimitConfig{
					Enabled: false,
					RPS:     DefaultRateLimitRPS,
					Burst:   DefaultRateLimitBurst,
				},
			},
			RESP: RESPConfig{
				Enabled:        false,
				Addr:           DefaultRESPAddr,
				MaxConnections: DefaultRESPMaxConnections,
				IdleTimeout:    DefaultRESPIdleTimeout,
				RateLimit: RateLimitConfig{
					Enabled: true,
					RPS:     DefaultRateLimitRPS,
					Burst:   DefaultRateLimitBurst,
				},
			},
		},
		Storage: StorageSection{
			Engine:       DefaultStorageEngine,
			DSN:          DefaultDSN,
			BusyTimeout:  DefaultBusyTimeout,
			SlowQuery:    DefaultSlowQuery,
			MemoryShards: DefaultMemoryShards,
			Badger: BadgerSection{
				Dir:            DefaultBadgerDir,
				GCInterval:     DefaultBadgerGCInterval,
				GCDiscardRatio: DefaultBadgerGCRatio,
				CacheSize:      DefaultBadgerCacheSize,
				SyncWrites:     true,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsSection{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}
