package handler

import (
	"encoding/json"
	"net/http"

	"expert-crm/internal/model"
	"expert-crm/internal/service"
	"expert-crm/pkg/apierror"
)

type SettingsHandler struct {
	service *service.SettingsService
}

func NewSettingsHandler(service *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

func (h *SettingsHandler) GetLeaseDays(w http.ResponseWriter, r *http.Request) {
	days, err := h.service.LeaseDays(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"lease_days": days}, nil)
}

func (h *SettingsHandler) SetLeaseDays(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LeaseDaysRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	if err := h.service.SetLeaseDays(r.Context(), payload.LeaseDays); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"lease_days": payload.LeaseDays}, nil)
}
