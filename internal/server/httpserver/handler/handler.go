package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mcnannay/peptrackr/internal/core/domain"
	"github.com/mcnannay/peptrackr/internal/core/service"
	"github.com/mcnannay/peptrackr/internal/telemetry/logger"
)

// DefaultAPIPrefix is the path prefix of the store and backup routes.
const DefaultAPIPrefix = "/api/v1"

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	store  *service.StoreService
	logger *slog.Logger
	prefix string
	mux    *http.ServeMux
}

// New creates a new Handler serving the store under prefix.
func New(store *service.StoreService, log *slog.Logger, prefix string) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}

	h := &Handler{
		store:  store,
		logger: log,
		prefix: strings.TrimSuffix(prefix, "/"),
		mux:    http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Routes groups the patterns served by the handler so the router can wrap
// each group with its own middleware.
type Routes struct {
	Probe  []string
	Store  []string
	Backup []string
}

// Routes returns the registered patterns.
func (h *Handler) Routes() Routes {
	return Routes{
		Probe: []string{
			"GET /health",
			"GET /ready",
		},
		Store: []string{
			"GET " + h.prefix + "/store",
			"GET " + h.prefix + "/store/{key...}",
			"PUT " + h.prefix + "/store/{key...}",
			"DELETE " + h.prefix + "/store/{key...}",
		},
		Backup: []string{
			"GET " + h.prefix + "/backup/export",
			"POST " + h.prefix + "/backup/import",
		},
	}
}

// Prefix returns the API prefix.
func (h *Handler) Prefix() string {
	return h.prefix
}

func (h *Handler) registerRoutes() {
	routes := h.Routes()

	h.mux.HandleFunc(routes.Probe[0], h.handleHealth)
	h.mux.HandleFunc(routes.Probe[1], h.handleReady)

	h.mux.HandleFunc(routes.Store[0], h.handleListEntries)
	h.mux.HandleFunc(routes.Store[1], h.handleGetEntry)
	h.mux.HandleFunc(routes.Store[2], h.handlePutEntry)
	h.mux.HandleFunc(routes.Store[3], h.handleDeleteEntry)

	h.mux.HandleFunc(routes.Backup[0], h.handleExport)
	h.mux.HandleFunc(routes.Backup[1], h.handleImport)
}

// writeJSON writes data as the JSON response body.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// writeError converts err to an error response.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if !domain.IsDomainError(err, "") {
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
	}
	WriteError(w, r, err)
}

// WriteError writes the JSON error body for err.
//
// Domain errors keep their code; anything else is reported as an internal
// error without leaking its message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		de = domain.ErrInternalServer
	}

	requestID := logger.RequestIDFromContext(r.Context())
	resp := ErrorResponse{
		Code:      de.Code,
		Detail:    de.Message,
		Details:   de.Details,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", de.Code)
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(StatusForCode(de.Code))
	_ = json.NewEncoder(w).Encode(resp)
}

// StatusForCode maps an error code to its HTTP status.
//
// The last dash-separated part of a code is the status followed by one
// discriminator digit: "PT-KV-4040" -> 404.
func StatusForCode(code string) int {
	i := strings.LastIndexByte(code, '-')
	if i < 0 {
		return http.StatusInternalServerError
	}
	n, err := strconv.Atoi(code[i+1:])
	if err != nil || len(code[i+1:]) != 4 {
		return http.StatusInternalServerError
	}
	status := n / 10
	if status < 400 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}

// noStore marks a response as uncacheable.
func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}
