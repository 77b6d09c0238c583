package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"expert-crm/internal/model"
	"expert-crm/pkg/apierror"
)

func TestWriteErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"api error keeps its status", apierror.New("CONFIG_ERROR", "secret unset", "", http.StatusServiceUnavailable), http.StatusServiceUnavailable, "CONFIG_ERROR"},
		{"wrapped api error unwraps", fmt.Errorf("outer: %w", apierror.BadRequest("bad input", "")), http.StatusBadRequest, "BAD_REQUEST"},
		{"expert not found", model.ErrExpertNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped sentinel", fmt.Errorf("force expire: %w", model.ErrAlreadyInPool), http.StatusBadRequest, "ALREADY_IN_POOL"},
		{"exemption conflict", model.ErrExpertExempt, http.StatusConflict, "EXPERT_EXEMPT"},
		{"unknown error is internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)

			require.Equal(t, tc.wantStatus, rec.Code)

			var resp model.APIResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.False(t, resp.Success)
			require.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestParseIntOrDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, 7, parseIntOrDefault("7", 1))
	require.Equal(t, 7, parseIntOrDefault(" 7 ", 1))
	require.Equal(t, 1, parseIntOrDefault("", 1))
	require.Equal(t, 1, parseIntOrDefault("x", 1))
}
