//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"expert-crm/internal/model"
)

func TestForceExpireEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ownerID := env.createUser(t, "owner1", model.RoleOperator)
	expertID := env.insertExpert(t, expertFixture{
		name:             "Held Expert",
		ownerID:          &ownerID,
		privateExpiresAt: timePtr(time.Now().UTC().Add(30 * 24 * time.Hour)),
	})

	resp := doJSONRequest(t, http.MethodPatch,
		env.server.URL+"/api/v1/admin/experts/"+expertID+"/force-expire", nil, env.adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	moved, err := env.experts.FindByID(ctx, expertID)
	require.NoError(t, err)
	require.Equal(t, model.VisibilityGlobalPool, moved.VisibilityStatus)
	require.True(t, moved.ReacquisitionPriority)

	audits, _, err := env.audits.Query(ctx, model.AuditQuery{Action: model.AuditActionForceExpire, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, audits, 1)
	require.NotNil(t, audits[0].ActorID)
	require.Equal(t, env.adminUserID, *audits[0].ActorID)
	require.Equal(t, true, audits[0].Metadata["manual_override"])

	// A second attempt finds the expert already in the pool.
	resp = doJSONRequest(t, http.MethodPatch,
		env.server.URL+"/api/v1/admin/experts/"+expertID+"/force-expire", nil, env.adminToken)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestForceExpireExemption(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ownerID := env.createUser(t, "owner1", model.RoleOperator)
	expertID := env.insertExpert(t, expertFixture{
		name:             "Protected Expert",
		ownerID:          &ownerID,
		privateExpiresAt: timePtr(time.Now().UTC().Add(-time.Hour)),
	})
	env.insertContact(t, expertID, true)

	url := env.server.URL + "/api/v1/admin/experts/" + expertID + "/force-expire"

	resp := doJSONRequest(t, http.MethodPatch, url, nil, env.adminToken)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	kept, err := env.experts.FindByID(ctx, expertID)
	require.NoError(t, err)
	require.Equal(t, model.VisibilityPrivate, kept.VisibilityStatus)

	resp = doJSONRequest(t, http.MethodPatch, url, []byte(`{"override_exemption":true}`), env.adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	moved, err := env.experts.FindByID(ctx, expertID)
	require.NoError(t, err)
	require.Equal(t, model.VisibilityGlobalPool, moved.VisibilityStatus)

	audits, _, err := env.audits.Query(ctx, model.AuditQuery{Action: model.AuditActionForceExpire, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, audits, 1)
	require.Equal(t, true, audits[0].Metadata["override_exemption"])
}

func TestForceExpireRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	env.createUser(t, "operator1", model.RoleOperator)
	operatorToken, _ := env.login(t, "operator1", "Password123!")

	ownerID := env.createUser(t, "owner1", model.RoleOperator)
	expertID := env.insertExpert(t, expertFixture{name: "Held Expert", ownerID: &ownerID})

	resp := doJSONRequest(t, http.MethodPatch,
		env.server.URL+"/api/v1/admin/experts/"+expertID+"/force-expire", nil, operatorToken)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBulkReclaimEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	newOwnerID := env.createUser(t, "newowner", model.RoleTeamLead)

	pooled1 := env.insertExpert(t, expertFixture{name: "Pooled A", visibility: model.VisibilityGlobalPool, priority: true})
	pooled2 := env.insertExpert(t, expertFixture{name: "Pooled B", visibility: model.VisibilityGlobalPool, priority: true})
	private := env.insertExpert(t, expertFixture{name: "Still Private", ownerID: &newOwnerID})

	body := []byte(`{"expert_ids":["` + pooled1 + `","` + pooled2 + `","` + private + `"],"new_owner_id":"` + newOwnerID + `"}`)
	resp := doJSONRequest(t, http.MethodPost,
		env.server.URL+"/api/v1/admin/settings/bulk-reclaim", body, env.adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	data := payload["data"].(map[string]any)
	require.Equal(t, float64(2), data["reclaimed"])

	for _, id := range []string{pooled1, pooled2} {
		e, err := env.experts.FindByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, model.VisibilityPrivate, e.VisibilityStatus)
		require.NotNil(t, e.OwnerID)
		require.Equal(t, newOwnerID, *e.OwnerID)
		require.False(t, e.ReacquisitionPriority)
		require.NotNil(t, e.PrivateExpiresAt)
		require.True(t, e.PrivateExpiresAt.After(time.Now().UTC()))
	}

	audits, _, err := env.audits.Query(ctx, model.AuditQuery{Action: model.AuditActionBulkReclaim, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, audits, 2)

	notes, _, err := env.notifications.ListForUser(ctx, newOwnerID, 1, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, model.NotificationExpertReassigned, notes[0].Type)
}

func TestBulkReclaimUnknownOwner(t *testing.T) {
	env := newTestEnv(t)

	pooled := env.insertExpert(t, expertFixture{name: "Pooled", visibility: model.VisibilityGlobalPool})

	body := []byte(`{"expert_ids":["` + pooled + `"],"new_owner_id":"00000000-0000-0000-0000-000000000000"}`)
	resp := doJSONRequest(t, http.MethodPost,
		env.server.URL+"/api/v1/admin/settings/bulk-reclaim", body, env.adminToken)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
