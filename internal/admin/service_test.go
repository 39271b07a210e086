package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/imadgeboyega/wedding-backend/internal/auth"
	"github.com/imadgeboyega/wedding-backend/internal/blog"
	"github.com/imadgeboyega/wedding-backend/internal/common/database"
	"github.com/imadgeboyega/wedding-backend/internal/common/utils"
	"github.com/imadgeboyega/wedding-backend/internal/posts"
)

type fakeFeed struct {
	deleted []string
	admins  []bool
	cleared bool
	err     error
}

func (f *fakeFeed) DeleteAs(ctx context.Context, postID, requester string, admin bool) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, postID)
	f.admins = append(f.admins, admin)
	return nil
}

func (f *fakeFeed) Clear() { f.cleared = true }

type fakeBlog struct {
	deleted []string
}

func (b *fakeBlog) DeletePost(ctx context.Context, id string) error {
	if id == "missing" {
		return blog.ErrPostNotFound
	}
	b.deleted = append(b.deleted, id)
	return nil
}

type fakeDataset struct {
	calls int
	err   error
}

func (d *fakeDataset) DeleteAll(ctx context.Context) error {
	d.calls++
	return d.err
}

func TestService_DeletePostAsAdmin(t *testing.T) {
	feed := &fakeFeed{}
	svc := NewService(feed, &fakeBlog{}, nil, zaptest.NewLogger(t))

	require.NoError(t, svc.DeletePost(context.Background(), "admin-1", "42"))
	assert.Equal(t, []string{"42"}, feed.deleted)
	assert.Equal(t, []bool{true}, feed.admins)
}

func TestService_ResetAllContinuesPastFailures(t *testing.T) {
	feed := &fakeFeed{}
	postsData := &fakeDataset{err: errors.New("db down")}
	blogData := &fakeDataset{}
	chatData := &fakeDataset{}

	svc := NewService(feed, &fakeBlog{}, []Dataset{
		{Name: "posts", Store: postsData},
		{Name: "blog", Store: blogData},
		{Name: "messaging", Store: chatData},
	}, zaptest.NewLogger(t))

	err := svc.ResetAll(context.Background(), "admin-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "posts: db down")
	assert.Equal(t, 1, blogData.calls)
	assert.Equal(t, 1, chatData.calls)
	assert.True(t, feed.cleared)
}

func TestService_ResetAllReadOnly(t *testing.T) {
	svc := NewService(&fakeFeed{}, &fakeBlog{}, []Dataset{
		{Name: "posts", Store: &fakeDataset{err: database.ErrReadOnly}},
	}, zaptest.NewLogger(t))

	assert.ErrorIs(t, svc.ResetAll(context.Background(), "admin-1"), database.ErrReadOnly)
}

type staticValidator struct{}

func (staticValidator) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	switch token {
	case "admin":
		return &utils.JWTClaims{UserID: "admin-1", Role: utils.RoleAdmin, Type: utils.TokenTypeAccess}, nil
	case "guest":
		return &utils.JWTClaims{UserID: "u1", Role: utils.RoleUser, Type: utils.TokenTypeAccess}, nil
	}
	return nil, utils.ErrInvalidToken
}

func newRouter(t *testing.T, feed *fakeFeed, datasets []Dataset) *mux.Router {
	mw := auth.NewMiddleware(staticValidator{})
	router := mux.NewRouter()
	adminAPI := router.PathPrefix("/api/v1/admin").Subrouter()
	adminAPI.Use(mw.Authenticate, mw.RequireAdmin)

	svc := NewService(feed, &fakeBlog{}, datasets, zaptest.NewLogger(t))
	RegisterRoutes(adminAPI, NewHandler(svc, false, zaptest.NewLogger(t)))
	return router
}

func serve(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RequiresAdminRole(t *testing.T) {
	router := newRouter(t, &fakeFeed{}, nil)

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodDelete, "/api/v1/admin/posts/42", "", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodDelete, "/api/v1/admin/posts/42", "guest", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodDelete, "/api/v1/admin/posts/42", "admin", "").Code)
}

func TestHandler_DeletePostNotFound(t *testing.T) {
	router := newRouter(t, &fakeFeed{err: posts.ErrPostNotFound}, nil)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodDelete, "/api/v1/admin/posts/42", "admin", "").Code)
}

func TestHandler_DeleteBlogPost(t *testing.T) {
	router := newRouter(t, &fakeFeed{}, nil)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodDelete, "/api/v1/admin/blog/b1", "admin", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodDelete, "/api/v1/admin/blog/missing", "admin", "").Code)
}

func TestHandler_ResetNeedsConfirmation(t *testing.T) {
	data := &fakeDataset{}
	feed := &fakeFeed{}
	router := newRouter(t, feed, []Dataset{{Name: "posts", Store: data}})

	rec := serve(router, http.MethodPost, "/api/v1/admin/reset", "admin", `{"confirm":"evet"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, data.calls)

	rec = serve(router, http.MethodPost, "/api/v1/admin/reset", "admin", `{"confirm":"SIFIRLA"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, data.calls)
	assert.True(t, feed.cleared)
}
