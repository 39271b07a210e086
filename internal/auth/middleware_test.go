package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/wedding-backend/internal/common/utils"
)

func token(t *testing.T, svc Service, role, typ string) string {
	tok, err := utils.GenerateJWT(&utils.JWTClaims{UserID: "u1", Role: role, Type: typ}, "test-secret", time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAuthenticate(t *testing.T) {
	d := newTestService(t, nil)
	m := NewMiddleware(d.svc)

	var seen string
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserIDFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"refresh token", "Bearer " + token(t, d.svc, utils.RoleUser, utils.TokenTypeRefresh), http.StatusUnauthorized},
		{"valid", "Bearer " + token(t, d.svc, utils.RoleUser, utils.TokenTypeAccess), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, "u1", seen)
}

func TestAuthenticate_WebsocketQueryToken(t *testing.T) {
	d := newTestService(t, nil)
	m := NewMiddleware(d.svc)
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token(t, d.svc, utils.RoleUser, utils.TokenTypeAccess), nil)
	req.Header.Set("Upgrade", "websocket")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// plain requests may not use the query parameter
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ws?token="+token(t, d.svc, utils.RoleUser, utils.TokenTypeAccess), nil)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	d := newTestService(t, nil)
	m := NewMiddleware(d.svc)
	h := m.Authenticate(m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, IsAdmin(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, d.svc, utils.RoleUser, utils.TokenTypeAccess))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, d.svc, utils.RoleAdmin, utils.TokenTypeAccess))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOptionalAuthenticate(t *testing.T) {
	d := newTestService(t, nil)
	m := NewMiddleware(d.svc)

	var authed bool
	h := m.OptionalAuthenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, authed = GetUserIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, authed)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, d.svc, utils.RoleUser, utils.TokenTypeAccess))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, authed)
}
