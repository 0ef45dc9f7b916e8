package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.Server.HTTP.Addr, DefaultHTTPAddr)
	}
	if cfg.Server.HTTP.APIPrefix != "/api/v1" {
		t.Errorf("APIPrefix = %q, want /api/v1", cfg.Server.HTTP.APIPrefix)
	}
	if len(cfg.Server.HTTP.CORSOrigins) != 1 || cfg.Server.HTTP.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v, want [*]", cfg.Server.HTTP.CORSOrigins)
	}
	if cfg.Server.RESP.Enabled {
		t.Error("RESP should be disabled by default")
	}
	if cfg.Storage.Engine != "sqlite" || cfg.Storage.DSN != "sqlite:///./data.db" {
		t.Errorf("Storage = %s %s", cfg.Storage.Engine, cfg.Storage.DSN)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify(Default()) error = %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"bad http addr", func(c *ServerConfig) { c.Server.HTTP.Addr = "8000" }, "server.http.addr"},
		{"prefix without slash", func(c *ServerConfig) { c.Server.HTTP.APIPrefix = "api" }, "api_prefix"},
		{"prefix trailing slash", func(c *ServerConfig) { c.Server.HTTP.APIPrefix = "/api/" }, "api_prefix"},
		{"empty prefix ok", func(c *ServerConfig) { c.Server.HTTP.APIPrefix = "" }, ""},
		{"zero body limit", func(c *ServerConfig) { c.Server.HTTP.MaxBodyBytes = 0 }, "max_body_bytes"},
		{"tls half set", func(c *ServerConfig) { c.Server.HTTP.TLSCertFile = "cert.pem" }, "set together"},
		{"tls missing file", func(c *ServerConfig) {
			c.Server.HTTP.TLSCertFile = "/nonexistent/cert.pem"
			c.Server.HTTP.TLSKeyFile = "/nonexistent/key.pem"
		}, "TLS file"},
		{"rate limit zero", func(c *ServerConfig) {
			c.Server.HTTP.RateLimit = RateLimitConfig{Enabled: true}
		}, "rate_limit"},
		{"resp port clash", func(c *ServerConfig) {
			c.Server.RESP.Enabled = true
			c.Server.RESP.Addr = c.Server.HTTP.Addr
		}, "conflicts"},
		{"resp disabled ignores addr", func(c *ServerConfig) { c.Server.RESP.Addr = "" }, ""},
		{"unknown engine", func(c *ServerConfig) { c.Storage.Engine = "postgres" }, "storage.engine"},
		{"sqlite empty dsn", func(c *ServerConfig) { c.Storage.DSN = " " }, "storage.dsn"},
		{"memory shards", func(c *ServerConfig) {
			c.Storage.Engine = "memory"
			c.Storage.MemoryShards = 3
		}, "power of 2"},
		{"badger ratio", func(c *ServerConfig) {
			c.Storage.Engine = "badger"
			c.Storage.Badger.GCDiscardRatio = 1.5
		}, "gc_discard_ratio"},
		{"bad log level", func(c *ServerConfig) { c.Log.Level = "trace" }, "log.level"},
		{"bad log format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
		{"metrics path", func(c *ServerConfig) { c.Metrics.Path = "metrics" }, "metrics.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Storage.Badger.Dir = filepath.Join(t.TempDir(), "badger")
			tt.mutate(cfg)

			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Verify() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if err := Verify(nil); err == nil {
		t.Error("Verify(nil) should fail")
	}
}

func TestSanitize(t *testing.T) {
	cfg := Default()
	cfg.Storage.DSN = "postgres://app:hunter2@db/pt"

	sanitized := Sanitize(cfg)

	if cfg.Storage.DSN != "postgres://app:hunter2@db/pt" {
		t.Error("original config should be unchanged")
	}
	if strings.Contains(sanitized.Storage.DSN, "hunter2") {
		t.Errorf("DSN not masked: %s", sanitized.Storage.DSN)
	}

	sanitized.Server.HTTP.CORSOrigins[0] = "mutated"
	if cfg.Server.HTTP.CORSOrigins[0] != "*" {
		t.Error("Sanitize should copy CORSOrigins")
	}
}

func TestToStorageConfig(t *testing.T) {
	s := Default().Storage
	s.Engine = "badger"
	s.Badger.Dir = "/tmp/pt-badger"
	s.Badger.GCInterval = time.Minute
	s.SlowQuery = 0

	out := ToStorageConfig(s)
	if out.Engine != "badger" || out.Badger.Dir != "/tmp/pt-badger" {
		t.Errorf("engine/dir = %s %s", out.Engine, out.Badger.Dir)
	}
	if out.Badger.GCInterval != time.Minute {
		t.Errorf("GCInterval = %v, want 1m", out.Badger.GCInterval)
	}
	if out.SlowQuery != 0 {
		t.Errorf("SlowQuery = %v, want disabled", out.SlowQuery)
	}

	empty := ToStorageConfig(StorageSection{})
	if empty.Engine != "sqlite" || empty.DSN != "sqlite:///./data.db" {
		t.Errorf("empty section should fall back to defaults: %+v", empty)
	}
}
