package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"expert-crm/internal/model"
)

type stubVerifier struct {
	duplicate bool
	err       error

	gotRequestID string
	gotExpertID  string
	gotContactID string
	calls        int
}

func (s *stubVerifier) VerifyContact(_ context.Context, requestID string, expertID string, contactID string) (bool, error) {
	s.calls++
	s.gotRequestID = requestID
	s.gotExpertID = expertID
	s.gotContactID = contactID
	return s.duplicate, s.err
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func doWebhookRequest(t *testing.T, h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/contact-verified", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}

	rec := httptest.NewRecorder()
	h.ContactVerified(rec, req)
	return rec
}

func TestContactVerifiedWebhook(t *testing.T) {
	t.Parallel()

	validBody := []byte(`{"request_id":"req-1","expert_id":"e1","contact_id":"c1"}`)

	t.Run("returns 503 when the secret is not configured", func(t *testing.T) {
		stub := &stubVerifier{}
		h := NewWebhookHandler(stub, "")

		rec := doWebhookRequest(t, h, validBody, signBody("whatever", validBody))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Zero(t, stub.calls)
	})

	t.Run("rejects a missing or invalid signature", func(t *testing.T) {
		stub := &stubVerifier{}
		h := NewWebhookHandler(stub, "hook-secret")

		rec := doWebhookRequest(t, h, validBody, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = doWebhookRequest(t, h, validBody, signBody("wrong-secret", validBody))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Zero(t, stub.calls)
	})

	t.Run("rejects a signature computed over a different body", func(t *testing.T) {
		h := NewWebhookHandler(&stubVerifier{}, "hook-secret")

		tampered := []byte(`{"request_id":"req-1","expert_id":"e2","contact_id":"c1"}`)
		rec := doWebhookRequest(t, h, tampered, signBody("hook-secret", validBody))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts a valid signature with or without the sha256 prefix", func(t *testing.T) {
		stub := &stubVerifier{}
		h := NewWebhookHandler(stub, "hook-secret")

		rec := doWebhookRequest(t, h, validBody, signBody("hook-secret", validBody))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doWebhookRequest(t, h, validBody, "sha256="+signBody("hook-secret", validBody))
		require.Equal(t, http.StatusOK, rec.Code)

		require.Equal(t, 2, stub.calls)
		require.Equal(t, "req-1", stub.gotRequestID)
		require.Equal(t, "e1", stub.gotExpertID)
		require.Equal(t, "c1", stub.gotContactID)
	})

	t.Run("requires expert_id and contact_id", func(t *testing.T) {
		stub := &stubVerifier{}
		h := NewWebhookHandler(stub, "hook-secret")

		body := []byte(`{"request_id":"req-1"}`)
		rec := doWebhookRequest(t, h, body, signBody("hook-secret", body))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Zero(t, stub.calls)
	})

	t.Run("flags duplicate deliveries as idempotent", func(t *testing.T) {
		h := NewWebhookHandler(&stubVerifier{duplicate: true}, "hook-secret")

		rec := doWebhookRequest(t, h, validBody, signBody("hook-secret", validBody))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp model.APIResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.True(t, resp.Success)

		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		require.Equal(t, true, data["verified"])
		require.Equal(t, true, data["idempotent"])
	})

	t.Run("surfaces a missing expert as 404", func(t *testing.T) {
		h := NewWebhookHandler(&stubVerifier{err: model.ErrExpertNotFound}, "hook-secret")

		rec := doWebhookRequest(t, h, validBody, signBody("hook-secret", validBody))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
