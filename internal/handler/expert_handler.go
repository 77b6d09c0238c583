package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"expert-crm/internal/middleware"
	"expert-crm/internal/model"
	"expert-crm/internal/service"
	"expert-crm/pkg/apierror"
)

type ExpertHandler struct {
	service *service.ExpertService
}

func NewExpertHandler(service *service.ExpertService) *ExpertHandler {
	return &ExpertHandler{service: service}
}

func (h *ExpertHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	var payload model.CreateExpertRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	expert, err := h.service.Create(r.Context(), payload.Name, claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, expert, nil)
}

func (h *ExpertHandler) Get(w http.ResponseWriter, r *http.Request) {
	expert, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, expert, nil)
}

func (h *ExpertHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	experts, meta, err := h.service.List(r.Context(), model.ExpertQuery{
		Visibility: strings.TrimSpace(query.Get("visibility")),
		OwnerID:    strings.TrimSpace(query.Get("owner_id")),
		Page:       parseIntOrDefault(query.Get("page"), 1),
		Limit:      parseIntOrDefault(query.Get("limit"), 50),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"items": experts}, &meta)
}

func (h *ExpertHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.AddContactRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	contact, err := h.service.AddContact(r.Context(), chi.URLParam(r, "id"), payload.Channel, payload.Value, payload.Verified)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, contact, nil)
}

func (h *ExpertHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.service.ListContacts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"items": contacts}, nil)
}
