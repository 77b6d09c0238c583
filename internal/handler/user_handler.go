package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"expert-crm/internal/service"
	"expert-crm/pkg/apierror"
)

type UserHandler struct {
	service *service.AuthService
}

func NewUserHandler(service *service.AuthService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"items": users}, nil)
}

func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	userID := chi.URLParam(r, "id")
	if err := h.service.ChangeRole(r.Context(), userID, payload.Role); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"user_id": userID, "role": payload.Role}, nil)
}
