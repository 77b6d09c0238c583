//go:build integration

package integration

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"expert-crm/internal/model"
)

func TestLeaseDaysSettings(t *testing.T) {
	env := newTestEnv(t)

	t.Run("defaults to 30 days", func(t *testing.T) {
		resp := doJSONRequest(t, http.MethodGet, env.server.URL+"/api/v1/admin/settings/lease-days", nil, env.adminToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data := decodeBody(t, resp)["data"].(map[string]any)
		require.Equal(t, float64(30), data["lease_days"])
	})

	t.Run("accepts an update and serves it back", func(t *testing.T) {
		resp := doJSONRequest(t, http.MethodPut, env.server.URL+"/api/v1/admin/settings/lease-days",
			[]byte(`{"lease_days":45}`), env.adminToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doJSONRequest(t, http.MethodGet, env.server.URL+"/api/v1/admin/settings/lease-days", nil, env.adminToken)
		data := decodeBody(t, resp)["data"].(map[string]any)
		require.Equal(t, float64(45), data["lease_days"])
	})

	t.Run("rejects out-of-range values", func(t *testing.T) {
		resp := doJSONRequest(t, http.MethodPut, env.server.URL+"/api/v1/admin/settings/lease-days",
			[]byte(`{"lease_days":0}`), env.adminToken)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = doJSONRequest(t, http.MethodPut, env.server.URL+"/api/v1/admin/settings/lease-days",
			[]byte(`{"lease_days":400}`), env.adminToken)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDecaySnapshotEndpoint(t *testing.T) {
	env := newTestEnv(t)

	ownerID := env.createUser(t, "owner1", model.RoleOperator)
	env.insertExpert(t, expertFixture{
		name:             "Expiring Soon",
		ownerID:          &ownerID,
		privateExpiresAt: timePtr(time.Now().UTC().Add(12 * time.Hour)),
	})
	env.insertExpert(t, expertFixture{
		name:             "Expiring Next Week",
		ownerID:          &ownerID,
		privateExpiresAt: timePtr(time.Now().UTC().Add(5 * 24 * time.Hour)),
	})

	resp := doJSONRequest(t, http.MethodGet, env.server.URL+"/api/v1/admin/decay", nil, env.adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeBody(t, resp)["data"].(map[string]any)
	heatmap := data["heatmap"].(map[string]any)
	require.Equal(t, float64(1), heatmap["within_24h"])
	require.Equal(t, float64(1), heatmap["within_7d"])
	require.Equal(t, float64(0), heatmap["within_15d"])

	expiring := data["expiring_experts"].([]any)
	require.Len(t, expiring, 2)
}

func TestAuditViewerFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ownerID := env.createUser(t, "owner1", model.RoleOperator)
	expired := env.insertExpert(t, expertFixture{
		name:             "Overdue Expert",
		ownerID:          &ownerID,
		privateExpiresAt: timePtr(time.Now().UTC().Add(-time.Hour)),
	})
	forced := env.insertExpert(t, expertFixture{name: "Forced Expert", ownerID: &ownerID})

	_, err := env.reclaimService.Sweep(ctx, model.SweepOptions{})
	require.NoError(t, err)
	require.NoError(t, env.reclaimService.ForceExpire(ctx, forced, env.adminUserID, false))

	resp := doJSONRequest(t, http.MethodGet,
		env.server.URL+"/api/v1/admin/audit?action="+model.AuditActionAutoExpiry, nil, env.adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	items := body["data"].(map[string]any)["items"].([]any)
	require.Len(t, items, 1)
	entry := items[0].(map[string]any)
	require.Equal(t, expired, entry["target_id"])
	require.Nil(t, entry["actor_id"])

	resp = doJSONRequest(t, http.MethodGet,
		env.server.URL+"/api/v1/admin/audit?target_id="+forced, nil, env.adminToken)
	body = decodeBody(t, resp)
	items = body["data"].(map[string]any)["items"].([]any)
	require.Len(t, items, 1)
	require.Equal(t, model.AuditActionForceExpire, items[0].(map[string]any)["action"])
}

func TestNotificationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createUser(t, "owner1", model.RoleOperator)
	ownerToken, ownerID := env.login(t, "owner1", "Password123!")

	env.insertExpert(t, expertFixture{
		name:             "Overdue Expert",
		ownerID:          &ownerID,
		privateExpiresAt: timePtr(time.Now().UTC().Add(-time.Hour)),
	})
	_, err := env.reclaimService.Sweep(ctx, model.SweepOptions{})
	require.NoError(t, err)

	resp := doJSONRequest(t, http.MethodGet, env.server.URL+"/api/v1/notifications", nil, ownerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	items := decodeBody(t, resp)["data"].(map[string]any)["items"].([]any)
	require.Len(t, items, 1)
	note := items[0].(map[string]any)
	require.Nil(t, note["read_at"])

	noteID := strconv.Itoa(int(note["id"].(float64)))
	resp = doJSONRequest(t, http.MethodPost, env.server.URL+"/api/v1/notifications/"+noteID+"/read", nil, ownerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Another user cannot mark it.
	resp = doJSONRequest(t, http.MethodPost, env.server.URL+"/api/v1/notifications/"+noteID+"/read", nil, env.adminToken)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExpertIngestionAndListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := doJSONRequest(t, http.MethodPost, env.server.URL+"/api/v1/experts",
		[]byte(`{"name":"Dr. Chen"}`), env.adminToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeBody(t, resp)["data"].(map[string]any)
	require.Equal(t, model.VisibilityPrivate, created["visibility_status"])
	// The lease is implicit: no explicit expiry is stamped at creation, so a
	// later lease-days change governs existing experts too.
	require.Nil(t, created["private_expires_at"])

	resp = doJSONRequest(t, http.MethodGet, env.server.URL+"/api/v1/experts?visibility=PRIVATE", nil, env.adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	items := decodeBody(t, resp)["data"].(map[string]any)["items"].([]any)
	require.Len(t, items, 1)

	expertID := created["id"].(string)
	_, err := env.db.Pool.Exec(ctx,
		`UPDATE experts SET created_at = now() - interval '40 days' WHERE id = $1`, expertID)
	require.NoError(t, err)

	result, err := env.reclaimService.Sweep(ctx, model.SweepOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{expertID}, result.ExpertIDs)
}
