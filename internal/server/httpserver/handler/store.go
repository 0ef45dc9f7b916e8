package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/mcnannay/peptrackr/internal/core/domain"
)

// handleListEntries handles GET /store.
//
// Repeated keys parameters select entries; every entry is returned only when
// keys is absent from the query. Empty keys values select nothing, so
// "?keys=" answers {}.
func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	var keys []string
	if requested, ok := r.URL.Query()["keys"]; ok {
		keys = make([]string, 0, len(requested))
		for _, k := range requested {
			if k != "" {
				keys = append(keys, k)
			}
		}
	}

	entries, err := h.store.GetMany(r.Context(), keys)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, entries)
}

// handleGetEntry handles GET /store/{key}.
func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	value, err := h.store.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, value)
}

// handlePutEntry handles PUT /store/{key}. The body is the JSON value.
func (h *Handler) handlePutEntry(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	body, err := readBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	value, err := domain.NewValue(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.store.Put(r.Context(), r.PathValue("key"), value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, PutResponse{OK: true, Key: result.Key})
}

// handleDeleteEntry handles DELETE /store/{key}.
func (h *Handler) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	if err := h.store.Delete(r.Context(), r.PathValue("key")); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, DeleteResponse{OK: true})
}

// readBody reads the request body, mapping a body over the server limit
// to ErrPayloadTooLarge.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, domain.ErrPayloadTooLarge.WithCause(err)
		}
		return nil, domain.ErrBadRequest.WithCause(err).WithDetails("unreadable body")
	}
	return body, nil
}
