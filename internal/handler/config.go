package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cfadmin/internal/model"
	"cfadmin/internal/util"
)

// ConfigStore is the slice of the credential store the config surface
// mutates.
type ConfigStore interface {
	GetCredentials() (*model.Credentials, error)
	CheckLoginKey(key string) (bool, error)
	UpdateAPIToken(token string) error
	UpdateLoginKey(newKey string) error
}

// TokenVerifier confirms the stored provider token is usable.
type TokenVerifier interface {
	VerifyToken(ctx context.Context) (string, error)
}

type ConfigHandler struct {
	store    ConfigStore
	verifier TokenVerifier
	audit    AuditLogger
}

func NewConfigHandler(store ConfigStore, verifier TokenVerifier, audit AuditLogger) *ConfigHandler {
	return &ConfigHandler{store: store, verifier: verifier, audit: audit}
}

// GetConfig reports whether a provider token is stored and when it was
// last updated. The raw token is never returned.
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	creds, err := h.store.GetCredentials()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load configuration")
		return
	}

	resp := map[string]any{
		"hasApiToken": false,
		"lastUpdated": nil,
	}
	if creds != nil {
		resp["hasApiToken"] = creds.APIToken != ""
		if creds.LastUpdated != nil {
			resp["lastUpdated"] = creds.LastUpdated.Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type setTokenRequest struct {
	APIToken string `json:"apiToken"`
}

func (h *ConfigHandler) SetAPIToken(w http.ResponseWriter, r *http.Request) {
	var req setTokenRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.APIToken) == "" {
		writeError(w, http.StatusBadRequest, "API token is required")
		return
	}

	if err := h.store.UpdateAPIToken(strings.TrimSpace(req.APIToken)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save API token")
		return
	}

	_ = h.audit.LogAudit(model.AuditEntry{
		Subject:   subjectOf(r),
		Action:    "update_api_token",
		IPAddress: util.GetClientIP(r),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "API token updated"})
}

type setLoginKeyRequest struct {
	CurrentKey string `json:"currentKey"`
	NewKey     string `json:"newKey"`
	ConfirmKey string `json:"confirmKey"`
}

// SetLoginKey rotates the shared login key after re-proving the current
// one. Previously issued tokens stay valid until their natural expiry;
// clients are expected to sign out right after a rotation.
func (h *ConfigHandler) SetLoginKey(w http.ResponseWriter, r *http.Request) {
	var req setLoginKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.CurrentKey == "" || req.NewKey == "" {
		writeError(w, http.StatusBadRequest, "Current and new login keys are required")
		return
	}
	if len(req.NewKey) < 8 {
		writeError(w, http.StatusBadRequest, "New login key must be at least 8 characters")
		return
	}
	if req.ConfirmKey != "" && req.NewKey != req.ConfirmKey {
		writeError(w, http.StatusBadRequest, "New login keys do not match")
		return
	}

	ok, err := h.store.CheckLoginKey(req.CurrentKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to verify current login key")
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "Current login key is incorrect")
		return
	}

	if err := h.store.UpdateLoginKey(req.NewKey); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update login key")
		return
	}

	_ = h.audit.LogAudit(model.AuditEntry{
		Subject:   subjectOf(r),
		Action:    "rotate_login_key",
		IPAddress: util.GetClientIP(r),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Login key updated"})
}

// TestConnection issues a lightweight call against the provider with
// the stored token.
func (h *ConfigHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	msg, err := h.verifier.VerifyToken(r.Context())
	if err != nil {
		status, errMsg := serviceErrorStatus(err)
		writeJSON(w, status, map[string]any{"success": false, "message": errMsg})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}
