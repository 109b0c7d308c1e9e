package handler

import (
	"net/http"

	"cfadmin/internal/model"
	"cfadmin/internal/service"
)

type ZoneHandler struct {
	dns *service.DNSService
}

func NewZoneHandler(dns *service.DNSService) *ZoneHandler {
	return &ZoneHandler{dns: dns}
}

func (h *ZoneHandler) List(w http.ResponseWriter, r *http.Request) {
	zones, err := h.dns.ListZones(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if zones == nil {
		zones = []model.Zone{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": zones})
}
