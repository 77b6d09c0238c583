package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"expert-crm/internal/middleware"
	"expert-crm/internal/model"
	"expert-crm/internal/service"
	"expert-crm/pkg/apierror"
)

type NotificationHandler struct {
	service *service.NotificationService
}

func NewNotificationHandler(service *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	query := r.URL.Query()
	items, meta, err := h.service.ListForUser(r.Context(), claims.UserID,
		parseIntOrDefault(query.Get("page"), 1),
		parseIntOrDefault(query.Get("limit"), 50))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.NotificationListData{Items: items}, &meta)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, apierror.BadRequest("invalid notification id", ""))
		return
	}

	if err := h.service.MarkRead(r.Context(), claims.UserID, id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"read": true}, nil)
}
