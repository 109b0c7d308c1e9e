package handler

import (
	"net/http"
	"strconv"
	"time"

	"cfadmin/internal/model"
)

type AuditLister interface {
	ListAuditLog(limit, offset int) ([]model.AuditEntry, int, error)
}

type AuditHandler struct {
	store AuditLister
}

func NewAuditHandler(store AuditLister) *AuditHandler {
	return &AuditHandler{store: store}
}

type auditEntryResponse struct {
	ID         int64  `json:"id"`
	Subject    string `json:"subject"`
	Action     string `json:"action"`
	ZoneID     string `json:"zoneId,omitempty"`
	RecordName string `json:"recordName,omitempty"`
	RecordType string `json:"recordType,omitempty"`
	Detail     string `json:"detail,omitempty"`
	IPAddress  string `json:"ipAddress,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parsePositive(r.URL.Query().Get("limit"), 50)
	if limit > 500 {
		limit = 500
	}
	offset := parsePositive(r.URL.Query().Get("offset"), 0)

	entries, total, err := h.store.ListAuditLog(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load audit log")
		return
	}

	resp := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, auditEntryResponse{
			ID:         e.ID,
			Subject:    e.Subject,
			Action:     e.Action,
			ZoneID:     e.ZoneID,
			RecordName: e.RecordName,
			RecordType: e.RecordType,
			Detail:     e.Detail,
			IPAddress:  e.IPAddress,
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": resp, "total": total})
}

func parsePositive(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
