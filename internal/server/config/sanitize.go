package config

import (
	"github.com/mcnannay/peptrackr/internal/telemetry/logger"
)

// Sanitize returns a copy of the config with credentials masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Server.HTTP.CORSOrigins = append([]string(nil), cfg.Server.HTTP.CORSOrigins...)
	sanitized.Storage.DSN = logger.RedactDSN(cfg.Storage.DSN)
	return &sanitized
}
