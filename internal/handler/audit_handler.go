package handler

import (
	"net/http"
	"strings"

	"expert-crm/internal/model"
	"expert-crm/internal/repository"
)

type AuditHandler struct {
	audits *repository.AuditRepository
}

func NewAuditHandler(audits *repository.AuditRepository) *AuditHandler {
	return &AuditHandler{audits: audits}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	items, meta, err := h.audits.Query(r.Context(), model.AuditQuery{
		Action:   strings.TrimSpace(query.Get("action")),
		ActorID:  strings.TrimSpace(query.Get("actor_id")),
		TargetID: strings.TrimSpace(query.Get("target_id")),
		From:     strings.TrimSpace(query.Get("from")),
		To:       strings.TrimSpace(query.Get("to")),
		Page:     parseIntOrDefault(query.Get("page"), 1),
		Limit:    parseIntOrDefault(query.Get("limit"), 50),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AuditListData{Items: items}, &meta)
}
