package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, cfg Config) *mux.Router {
	h, err := NewHandler(cfg)
	require.NoError(t, err)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func TestManifest(t *testing.T) {
	router := newRouter(t, DefaultConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/manifest.webmanifest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/manifest+json", rec.Header().Get("Content-Type"))

	var m Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "Düğünümüz", m.Name)
	assert.Equal(t, "standalone", m.Display)
	assert.Len(t, m.Icons, 2)
}

func TestServiceWorker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheName = "wedding-share-v2"
	cfg.Assets = []string{"/", "/app.js"}
	router := newRouter(t, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sw.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.Contains(t, body, `const CACHE_NAME = 'wedding-share-v2';`)
	assert.Contains(t, body, `'/app.js',`)
	assert.NotContains(t, body, `/icons/icon-512.png',`)
}
