package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/imadgeboyega/wedding-backend/internal/auth"
	"github.com/imadgeboyega/wedding-backend/internal/common/utils"
	"github.com/imadgeboyega/wedding-backend/internal/media"
	"github.com/imadgeboyega/wedding-backend/internal/posts"
)

func newSampleRouter(t *testing.T) (*mux.Router, *Store) {
	logger := zaptest.NewLogger(t)
	storage, err := media.NewLocalStorage(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	authors := posts.AuthorDirectoryFunc(func(ctx context.Context, id string) (posts.Author, error) {
		return posts.Author{ID: id, Name: id}, nil
	})
	svc := posts.NewService(posts.NewSampleRepository(), media.NewIngestor(storage, "posts", 1<<20, logger), authors, logger)
	store := NewStore(svc, 50, logger)
	require.NoError(t, store.Load(context.Background()))

	r := mux.NewRouter()
	NewHandler(store, svc, logger).RegisterRoutes(r)
	return r, store
}

func serve(r http.Handler, method, path, body, userID, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithClaims(req.Context(), &utils.JWTClaims{UserID: userID, Role: role, Type: utils.TokenTypeAccess}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_GetFeed(t *testing.T) {
	r, _ := newSampleRouter(t)

	rec := serve(r, http.MethodGet, "/feed?limit=2", "", "u1", utils.RoleUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []posts.Post `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, "sample-3", resp.Data[0].ID)
}

func TestHandler_ToggleLikeIsOptimistic(t *testing.T) {
	r, store := newSampleRouter(t)

	rec := serve(r, http.MethodPost, "/posts/sample-2/like", "", "u1", utils.RoleUser)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"liked":true,"like_count":9}}`, rec.Body.String())

	// the sample repository rejects the write in the background
	store.Wait()
	got, _ := store.Get("sample-2", "u1")
	assert.True(t, got.Liked)
}

func TestHandler_DeleteRequiresOwnerOrAdmin(t *testing.T) {
	r, _ := newSampleRouter(t)

	rec := serve(r, http.MethodDelete, "/posts/sample-1", "", "u1", utils.RoleUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(r, http.MethodDelete, "/posts/sample-1", "", "u1", utils.RoleAdmin)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_AddComment(t *testing.T) {
	r, store := newSampleRouter(t)

	rec := serve(r, http.MethodPost, "/posts/sample-1/comments", `{"text":"Çok tatlısınız"}`, "u1", utils.RoleUser)
	require.Equal(t, http.StatusCreated, rec.Code)

	got, _ := store.Get("sample-1", "")
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "Çok tatlısınız", got.Comments[0].Text)

	rec = serve(r, http.MethodPost, "/posts/sample-1/comments", `{"text":""}`, "u1", utils.RoleUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
