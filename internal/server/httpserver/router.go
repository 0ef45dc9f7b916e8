package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/mcnannay/peptrackr/internal/core/service"
	"github.com/mcnannay/peptrackr/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Store serves the store and backup routes.
	Store *service.StoreService

	// Logger for request logging.
	Logger *slog.Logger

	// APIPrefix is prepended to the store and backup routes.
	APIPrefix string

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = allow all).
	CORSAllowedOrigins []string

	// MaxBodyBytes bounds request bodies (0 = unlimited).
	MaxBodyBytes int64

	// RateLimiter limits requests per client IP (nil = unlimited).
	RateLimiter *service.RateLimiterRegistry

	// Observer receives request metrics (nil = none).
	Observer HTTPObserver

	// MetricsHandler serves GET MetricsPath (nil = route not registered).
	MetricsHandler http.Handler

	// MetricsPath defaults to /metrics.
	MetricsPath string

	// EnableAudit enables access logging for all requests.
	EnableAudit bool
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
//
// Order for API routes: Recover -> RequestID -> Metrics -> Audit -> CORS ->
// RateLimit -> MaxBytes -> Handler. Probes and /metrics skip CORS, rate
// limiting and the body limit.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	h := handler.New(cfg.Store, log, cfg.APIPrefix)
	routes := h.Routes()

	base := []Middleware{
		Recover(log),
		RequestID(),
		Metrics(cfg.Observer),
	}
	if cfg.EnableAudit {
		base = append(base, Audit(log))
	}

	api := append([]Middleware{}, base...)
	api = append(api, CORS(cfg.CORSAllowedOrigins))
	if cfg.RateLimiter != nil {
		api = append(api, RateLimit(cfg.RateLimiter))
	}
	api = append(api, MaxBytes(cfg.MaxBodyBytes))

	probeHandler := Chain(h, base...)
	apiHandler := Chain(h, api...)

	mux := http.NewServeMux()

	// Health endpoints
	for _, pattern := range routes.Probe {
		mux.Handle(pattern, probeHandler)
	}

	// Metrics endpoint
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, Chain(cfg.MetricsHandler, base...))
	}

	// Store and backup endpoints
	for _, pattern := range routes.Store {
		mux.Handle(pattern, apiHandler)
	}
	for _, pattern := range routes.Backup {
		mux.Handle(pattern, apiHandler)
	}

	// CORS preflight for everything under the prefix
	mux.Handle("OPTIONS "+h.Prefix()+"/", apiHandler)

	return mux
}
