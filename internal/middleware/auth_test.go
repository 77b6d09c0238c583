package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"expert-crm/internal/model"
)

type stubValidator struct {
	claims *model.AuthClaims
	err    error
}

func (s *stubValidator) ValidateToken(tokenString string, expectedType string) (*model.AuthClaims, error) {
	return s.claims, s.err
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "u1", claims.UserID)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubValidator{})
		rec := httptest.NewRecorder()
		mw.RequireAuth(okHandler).ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/experts", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a non-bearer scheme", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubValidator{})
		req := httptest.NewRequest("GET", "/api/v1/experts", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		mw.RequireAuth(okHandler).ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects an invalid token", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubValidator{err: errors.New("expired")})
		req := httptest.NewRequest("GET", "/api/v1/experts", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()
		mw.RequireAuth(okHandler).ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("threads claims into the request context", func(t *testing.T) {
		mw := NewAuthMiddleware(&stubValidator{claims: &model.AuthClaims{UserID: "u1", Role: model.RoleOperator}})
		req := httptest.NewRequest("GET", "/api/v1/experts", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		mw.RequireAuth(okHandler).ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	t.Parallel()

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	withRole := func(role string) *http.Request {
		req := httptest.NewRequest("GET", "/api/v1/admin/decay", nil)
		return req.WithContext(ContextWithClaims(req.Context(),
			&model.AuthClaims{UserID: "u1", Role: role}))
	}

	mw := NewAuthMiddleware(&stubValidator{})
	guarded := mw.RequireRoles(model.RoleAdmin)(okHandler)

	t.Run("requires claims", func(t *testing.T) {
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/admin/decay", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("forbids the wrong role", func(t *testing.T) {
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, withRole(model.RoleOperator))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admits an allowed role regardless of case", func(t *testing.T) {
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, withRole("Admin"))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}
