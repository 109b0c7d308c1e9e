package handler

import (
	"errors"
	"net/http"

	"cfadmin/internal/auth"
	"cfadmin/internal/model"
	"cfadmin/internal/util"
)

type AuthHandler struct {
	sessionMgr *auth.SessionManager
	audit      AuditLogger
}

func NewAuthHandler(sm *auth.SessionManager, audit AuditLogger) *AuthHandler {
	return &AuthHandler{sessionMgr: sm, audit: audit}
}

type loginRequest struct {
	LoginKey string `json:"loginKey"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	User      model.User `json:"user"`
	ExpiresAt int64      `json:"expiresAt"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil || req.LoginKey == "" {
		writeError(w, http.StatusBadRequest, "Login key is required")
		return
	}

	token, user, expiresAt, err := h.sessionMgr.Login(req.LoginKey)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidKey) {
			writeError(w, http.StatusUnauthorized, "Invalid login key")
			return
		}
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	_ = h.audit.LogAudit(model.AuditEntry{
		Subject:   user.ID,
		Action:    "login",
		IPAddress: util.GetClientIP(r),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		User:      user,
		ExpiresAt: expiresAt.UnixMilli(),
	})
}

// Logout is advisory. Tokens carry their own expiry and there is no
// server-side session to destroy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	_ = h.audit.LogAudit(model.AuditEntry{
		Subject:   subjectOf(r),
		Action:    "logout",
		IPAddress: util.GetClientIP(r),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
