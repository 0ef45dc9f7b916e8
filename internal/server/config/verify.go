package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/mcnannay/peptrackr/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := verifyHTTP(&cfg.Server.HTTP); err != nil {
		return err
	}
	if err := verifyRESP(&cfg.Server.RESP, cfg.Server.HTTP.Addr); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/': %q", cfg.Metrics.Path)
	}
	return nil
}

func verifyHTTP(cfg *HTTPConfig) error {
	if err := verifyAddr("server.http.addr", cfg.Addr); err != nil {
		return err
	}
	if cfg.APIPrefix != "" {
		if !strings.HasPrefix(cfg.APIPrefix, "/") || strings.HasSuffix(cfg.APIPrefix, "/") {
			return fmt.Errorf("server.http.api_prefix must start and not end with '/': %q", cfg.APIPrefix)
		}
	}
	if cfg.MaxBodyBytes <= 0 {
		return errors.New("server.http.max_body_bytes must be positive")
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{cfg.TLSCertFile, cfg.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("server.http TLS file: %w", err)
		}
	}
	return verifyRateLimit("server.http.rate_limit", cfg.RateLimit)
}

func verifyRESP(cfg *RESPConfig, httpAddr string) error {
	if !cfg.Enabled {
		return nil
	}
	if err := verifyAddr("server.resp.addr", cfg.Addr); err != nil {
		return err
	}
	if cfg.Addr == httpAddr {
		return fmt.Errorf("server.resp.addr conflicts with server.http.addr (%s)", cfg.Addr)
	}
	if cfg.MaxConnections <= 0 {
		return errors.New("server.resp.max_connections must be positive")
	}
	return verifyRateLimit("server.resp.rate_limit", cfg.RateLimit)
}

func verifyRateLimit(name string, cfg RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.RPS <= 0 || cfg.Burst <= 0 {
		return fmt.Errorf("%s: rps and burst must be positive", name)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch strings.ToLower(cfg.Engine) {
	case "sqlite":
		if strings.TrimSpace(cfg.DSN) == "" {
			return errors.New("storage.dsn is required for the sqlite engine")
		}
	case "badger":
		if cfg.Badger.Dir == "" {
			return errors.New("storage.badger.dir is required for the badger engine")
		}
		if err := os.MkdirAll(cfg.Badger.Dir, 0750); err != nil {
			return fmt.Errorf("cannot create badger directory: %w", err)
		}
		if cfg.Badger.GCDiscardRatio <= 0 || cfg.Badger.GCDiscardRatio >= 1 {
			return fmt.Errorf("storage.badger.gc_discard_ratio must be in (0, 1): %v", cfg.Badger.GCDiscardRatio)
		}
	case "memory":
		if cfg.MemoryShards <= 0 || cfg.MemoryShards&(cfg.MemoryShards-1) != 0 {
			return fmt.Errorf("storage.memory_shards must be a power of 2: %d", cfg.MemoryShards)
		}
	default:
		return fmt.Errorf("storage.engine must be sqlite, badger or memory: %q", cfg.Engine)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level must be debug, info, warn or error: %q", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
		return nil
	}
	return fmt.Errorf("log.format must be json or text: %q", cfg.Format)
}

func verifyAddr(name, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", name)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
