package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"expert-crm/internal/middleware"
	"expert-crm/internal/model"
	"expert-crm/pkg/apierror"
)

type reclaimer interface {
	ForceExpire(ctx context.Context, expertID string, actorID string, overrideExemption bool) error
	BulkReclaim(ctx context.Context, expertIDs []string, newOwnerID string, actorID string) (int, error)
}

// ReclaimHandler exposes the administrative override surfaces of the
// reclamation engine.
type ReclaimHandler struct {
	service reclaimer
}

func NewReclaimHandler(service reclaimer) *ReclaimHandler {
	return &ReclaimHandler{service: service}
}

func (h *ReclaimHandler) ForceExpire(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	expertID := chi.URLParam(r, "id")

	// Body is optional; an empty body means no exemption override.
	var payload model.ForceExpireRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, apierror.BadRequest("invalid JSON body", ""))
			return
		}
	}

	if err := h.service.ForceExpire(r.Context(), expertID, claims.UserID, payload.OverrideExemption); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"expert_id": expertID, "expired": true}, nil)
}

func (h *ReclaimHandler) BulkReclaim(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	var payload model.BulkReclaimRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	if payload.NewOwnerID == "" {
		writeError(w, apierror.BadRequest("new_owner_id is required", "new_owner_id"))
		return
	}

	reclaimed, err := h.service.BulkReclaim(r.Context(), payload.ExpertIDs, payload.NewOwnerID, claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"reclaimed": reclaimed}, nil)
}
