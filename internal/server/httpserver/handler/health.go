package handler

import (
	"net/http"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady handles GET /ready. The backend must answer a ping.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "readiness check failed", "error", err)
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, StatusResponse{Status: "ready"})
}
