package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"expert-crm/internal/model"
)

type sweeper interface {
	Sweep(ctx context.Context, opts model.SweepOptions) (model.SweepResult, error)
}

// CronHandler is the scheduled trigger for the expiry sweep. Its response
// shapes are a contract with the external scheduler and deliberately bypass
// the API envelope used elsewhere.
type CronHandler struct {
	sweeper    sweeper
	cronSecret string
	dryRun     bool
}

func NewCronHandler(sweeper sweeper, cronSecret string, dryRun bool) *CronHandler {
	return &CronHandler{sweeper: sweeper, cronSecret: cronSecret, dryRun: dryRun}
}

func (h *CronHandler) ExpireOwnership(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "CRON_SECRET not configured",
			"code":  "CONFIG_ERROR",
		})
		return
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	expected := "Bearer " + h.cronSecret
	if subtle.ConstantTimeCompare([]byte(header), []byte(expected)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
		return
	}

	dryRun := h.dryRun
	if raw := strings.TrimSpace(r.URL.Query().Get("dry_run")); raw != "" {
		dryRun = strings.EqualFold(raw, "true")
	}

	result, err := h.sweeper.Sweep(r.Context(), model.SweepOptions{DryRun: dryRun})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Expiry job failed",
			"code":    "CRON_ERROR",
			"details": err.Error(),
		})
		return
	}

	// Lock contention is an expected, side-effect-free outcome, reported as
	// a conflict rather than an error so schedulers do not alert on it.
	if !result.Acquired {
		writeJSON(w, http.StatusConflict, map[string]any{
			"ok":      false,
			"message": "Another worker holds the lock",
			"expired": 0,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"expired":   result.Expired,
		"expertIds": result.ExpertIDs,
		"dryRun":    result.DryRun,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
