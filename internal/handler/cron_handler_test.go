package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"expert-crm/internal/model"
)

type stubSweeper struct {
	result model.SweepResult
	err    error

	gotOpts model.SweepOptions
	calls   int
}

func (s *stubSweeper) Sweep(_ context.Context, opts model.SweepOptions) (model.SweepResult, error) {
	s.calls++
	s.gotOpts = opts
	return s.result, s.err
}

func doCronRequest(t *testing.T, h *CronHandler, target string, authHeader string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	rec := httptest.NewRecorder()
	h.ExpireOwnership(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestCronExpireOwnership(t *testing.T) {
	t.Parallel()

	t.Run("returns 503 when secret is not configured", func(t *testing.T) {
		sweeper := &stubSweeper{}
		h := NewCronHandler(sweeper, "", false)

		rec, body := doCronRequest(t, h, "/cron/expire-ownership", "Bearer anything")

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "CRON_SECRET not configured", body["error"])
		require.Equal(t, "CONFIG_ERROR", body["code"])
		require.Zero(t, sweeper.calls)
	})

	t.Run("returns 401 on wrong or missing bearer token", func(t *testing.T) {
		sweeper := &stubSweeper{}
		h := NewCronHandler(sweeper, "s3cret", false)

		rec, body := doCronRequest(t, h, "/cron/expire-ownership", "Bearer wrong")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Unauthorized", body["error"])

		rec, _ = doCronRequest(t, h, "/cron/expire-ownership", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Zero(t, sweeper.calls)
	})

	t.Run("reports lock contention as 409 with zero expired", func(t *testing.T) {
		sweeper := &stubSweeper{result: model.SweepResult{Acquired: false}}
		h := NewCronHandler(sweeper, "s3cret", false)

		rec, body := doCronRequest(t, h, "/cron/expire-ownership", "Bearer s3cret")

		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, false, body["ok"])
		require.Equal(t, "Another worker holds the lock", body["message"])
		require.Equal(t, float64(0), body["expired"])
	})

	t.Run("returns sweep summary on success", func(t *testing.T) {
		sweeper := &stubSweeper{result: model.SweepResult{
			Acquired:  true,
			Expired:   2,
			ExpertIDs: []string{"e1", "e2"},
		}}
		h := NewCronHandler(sweeper, "s3cret", false)

		rec, body := doCronRequest(t, h, "/cron/expire-ownership", "Bearer s3cret")

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, true, body["ok"])
		require.Equal(t, float64(2), body["expired"])
		require.Equal(t, []any{"e1", "e2"}, body["expertIds"])
		require.Equal(t, false, body["dryRun"])
		require.False(t, sweeper.gotOpts.DryRun)
	})

	t.Run("dry_run query parameter overrides the configured default", func(t *testing.T) {
		sweeper := &stubSweeper{result: model.SweepResult{Acquired: true, DryRun: true}}
		h := NewCronHandler(sweeper, "s3cret", false)

		rec, body := doCronRequest(t, h, "/cron/expire-ownership?dry_run=true", "Bearer s3cret")

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, true, body["dryRun"])
		require.True(t, sweeper.gotOpts.DryRun)
	})

	t.Run("dry_run=false disables a dry-run default", func(t *testing.T) {
		sweeper := &stubSweeper{result: model.SweepResult{Acquired: true}}
		h := NewCronHandler(sweeper, "s3cret", true)

		_, _ = doCronRequest(t, h, "/cron/expire-ownership?dry_run=false", "Bearer s3cret")

		require.False(t, sweeper.gotOpts.DryRun)
	})

	t.Run("returns 500 with details when the sweep fails", func(t *testing.T) {
		sweeper := &stubSweeper{err: errors.New("tx aborted")}
		h := NewCronHandler(sweeper, "s3cret", false)

		rec, body := doCronRequest(t, h, "/cron/expire-ownership", "Bearer s3cret")

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "Expiry job failed", body["error"])
		require.Equal(t, "CRON_ERROR", body["code"])
		require.Equal(t, "tx aborted", body["details"])
	})
}
