package handler

import (
	"fmt"
	"net/http"

	"cfadmin/internal/model"
	"cfadmin/internal/service"
	"cfadmin/internal/util"
)

type RecordHandler struct {
	dns   *service.DNSService
	audit AuditLogger
}

func NewRecordHandler(dns *service.DNSService, audit AuditLogger) *RecordHandler {
	return &RecordHandler{dns: dns, audit: audit}
}

func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	zoneID := r.PathValue("zoneID")
	records, err := h.dns.ListRecords(r.Context(), zoneID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []model.DNSRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": records})
}

func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	zoneID := r.PathValue("zoneID")

	var fields model.RecordFields
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.dns.CreateRecord(r.Context(), zoneID, fields)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = h.audit.LogAudit(model.AuditEntry{
		Subject:    subjectOf(r),
		Action:     "create_record",
		ZoneID:     zoneID,
		RecordName: rec.Name,
		RecordType: rec.Type,
		Detail:     fmt.Sprintf("content=%s ttl=%d proxied=%t", rec.Content, rec.TTL, rec.Proxied),
		IPAddress:  util.GetClientIP(r),
	})
	writeJSON(w, http.StatusOK, rec)
}

func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	zoneID := r.PathValue("zoneID")
	recordID := r.PathValue("recordID")

	var fields model.RecordFields
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.dns.UpdateRecord(r.Context(), zoneID, recordID, fields)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = h.audit.LogAudit(model.AuditEntry{
		Subject:    subjectOf(r),
		Action:     "update_record",
		ZoneID:     zoneID,
		RecordName: rec.Name,
		RecordType: rec.Type,
		Detail:     fmt.Sprintf("content=%s ttl=%d proxied=%t", rec.Content, rec.TTL, rec.Proxied),
		IPAddress:  util.GetClientIP(r),
	})
	writeJSON(w, http.StatusOK, rec)
}

func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	zoneID := r.PathValue("zoneID")
	recordID := r.PathValue("recordID")

	if err := h.dns.DeleteRecord(r.Context(), zoneID, recordID); err != nil {
		writeServiceError(w, err)
		return
	}

	_ = h.audit.LogAudit(model.AuditEntry{
		Subject:   subjectOf(r),
		Action:    "delete_record",
		ZoneID:    zoneID,
		Detail:    "record id " + recordID,
		IPAddress: util.GetClientIP(r),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Record deleted"})
}

// ToggleProxied flips the proxied flag on a record with a read followed
// by a full-payload update.
func (h *RecordHandler) ToggleProxied(w http.ResponseWriter, r *http.Request) {
	zoneID := r.PathValue("zoneID")
	recordID := r.PathValue("recordID")

	rec, err := h.dns.ToggleProxied(r.Context(), zoneID, recordID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = h.audit.LogAudit(model.AuditEntry{
		Subject:    subjectOf(r),
		Action:     "toggle_proxied",
		ZoneID:     zoneID,
		RecordName: rec.Name,
		RecordType: rec.Type,
		Detail:     fmt.Sprintf("proxied=%t", rec.Proxied),
		IPAddress:  util.GetClientIP(r),
	})
	writeJSON(w, http.StatusOK, rec)
}
