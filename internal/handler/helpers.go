package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"cfadmin/internal/auth"
	"cfadmin/internal/model"
	"cfadmin/internal/service"
)

// AuditLogger records operator actions. Implemented by the database.
type AuditLogger interface {
	LogAudit(entry model.AuditEntry) error
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// serviceErrorStatus maps a forwarding failure to a status and message.
// Provider errors keep their status and message; transport failures
// become 502.
func serviceErrorStatus(err error) (int, string) {
	var provErr *service.ProviderError
	switch {
	case errors.Is(err, service.ErrNoAPIToken):
		return http.StatusBadRequest, "Cloudflare API token is not configured"
	case errors.As(err, &provErr):
		status := provErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return status, provErr.Message
	default:
		return http.StatusBadGateway, "Failed to reach Cloudflare API"
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, msg := serviceErrorStatus(err)
	writeError(w, status, msg)
}

func subjectOf(r *http.Request) string {
	if subject, ok := auth.SubjectFromContext(r.Context()); ok {
		return subject
	}
	return ""
}
