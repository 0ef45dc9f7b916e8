package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mcnannay/peptrackr/internal/core/domain"
	"github.com/mcnannay/peptrackr/internal/core/service"
)

// BackupFilename is the download name offered for exports.
const BackupFilename = "backup.json"

// handleExport handles GET /backup/export.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	backup, err := h.store.Export(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+BackupFilename+`"`)
	h.writeJSON(w, r, http.StatusOK, backup)
}

// handleImport handles POST /backup/import[?replace=true].
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	replace := false
	if v := r.URL.Query().Get("replace"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, domain.ErrBadRequest.WithDetails("replace must be a boolean"))
			return
		}
		replace = b
	}

	body, err := readBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	backup, err := DecodeBackup(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.store.Import(r.Context(), backup, replace)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ImportResponse{
		OK:       true,
		Imported: result.Imported,
		Removed:  result.Removed,
	})
}

var backupFields = map[string]bool{
	"version":     true,
	"exported_at": true,
	"entries":     true,
}

// DecodeBackup parses an import body.
//
// Two shapes are accepted: the export document ({"version", "exported_at",
// "entries"}) and a flat object mapping keys to values. An object is read as
// an export document only when it has "entries" and no other fields.
func DecodeBackup(body []byte) (*service.Backup, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil || top == nil {
		return nil, domain.ErrInvalidBackup.WithDetails("body must be a JSON object")
	}

	if isExportDocument(top) {
		var b service.Backup
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, domain.ErrInvalidBackup.WithCause(err)
		}
		if _, ok := top["version"]; !ok {
			b.Version = service.BackupVersion
		}
		if b.Entries == nil {
			b.Entries = map[string]domain.Value{}
		}
		return &b, nil
	}

	entries := make(map[string]domain.Value, len(top))
	for key, raw := range top {
		v, err := domain.NewValue(raw)
		if err != nil {
			return nil, domain.ErrInvalidBackup.WithCause(err).WithDetails("key " + strconv.Quote(key))
		}
		entries[key] = v
	}
	return &service.Backup{Version: service.BackupVersion, Entries: entries}, nil
}

func isExportDocument(top map[string]json.RawMessage) bool {
	if _, ok := top["entries"]; !ok {
		return false
	}
	for field := range top {
		if !backupFields[field] {
			return false
		}
	}
	return true
}
