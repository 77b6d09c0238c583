package handler

import (
	"net/http"

	"expert-crm/internal/service"
)

type DecayHandler struct {
	service *service.DecayService
}

func NewDecayHandler(service *service.DecayService) *DecayHandler {
	return &DecayHandler{service: service}
}

func (h *DecayHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}
