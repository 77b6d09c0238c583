package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"expert-crm/internal/model"
	"expert-crm/pkg/apierror"
)

const signatureHeader = "X-Webhook-Signature"

type contactVerifier interface {
	VerifyContact(ctx context.Context, requestID string, expertID string, contactID string) (bool, error)
}

// WebhookHandler receives at-least-once callbacks from the enrichment
// pipeline. Authentication is an HMAC-SHA256 signature over the raw body;
// duplicate deliveries are dropped via the idempotency guard.
type WebhookHandler struct {
	service contactVerifier
	secret  []byte
}

func NewWebhookHandler(service contactVerifier, secret string) *WebhookHandler {
	return &WebhookHandler{service: service, secret: []byte(secret)}
}

func (h *WebhookHandler) ContactVerified(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	if len(h.secret) == 0 {
		writeError(w, apierror.New("CONFIG_ERROR", "webhook secret not configured", "", http.StatusServiceUnavailable))
		return
	}

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, apierror.BadRequest("unreadable body", ""))
		return
	}

	if !h.verifySignature(rawBody, r.Header.Get(signatureHeader)) {
		writeError(w, apierror.New("UNAUTHORIZED", "invalid signature", "", http.StatusUnauthorized))
		return
	}

	var payload model.ContactVerifiedWebhook
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	if payload.ExpertID == "" || payload.ContactID == "" {
		writeError(w, apierror.BadRequest("expert_id and contact_id are required", ""))
		return
	}

	duplicate, err := h.service.VerifyContact(r.Context(), payload.RequestID, payload.ExpertID, payload.ContactID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"verified": true, "idempotent": duplicate}, nil)
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	signature = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
