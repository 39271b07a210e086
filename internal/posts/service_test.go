package posts

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/imadgeboyega/wedding-backend/internal/common/database"
	"github.com/imadgeboyega/wedding-backend/internal/media"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type countingStorage struct {
	puts    int
	deletes []string
	fail    bool
}

func (s *countingStorage) Backend() string { return "test" }

func (s *countingStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.fail {
		return "", errors.New("storage down")
	}
	s.puts++
	return "https://cdn.test/" + key, nil
}

func (s *countingStorage) Delete(ctx context.Context, url string) error {
	s.deletes = append(s.deletes, url)
	return nil
}

// memRepo is a minimal in-memory Repository for service tests
type memRepo struct {
	posts    map[string]*Post
	likes    map[string]map[string]bool
	comments []*Comment
	err      error
}

func newMemRepo() *memRepo {
	return &memRepo{posts: map[string]*Post{}, likes: map[string]map[string]bool{}}
}

func (m *memRepo) Create(ctx context.Context, p *Post) error {
	if m.err != nil {
		return m.err
	}
	m.posts[p.ID] = p.Clone()
	return nil
}

func (m *memRepo) Get(ctx context.Context, id, viewer string) (*Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	cp := p.Clone()
	cp.Liked = m.likes[id][viewer]
	return cp, nil
}

func (m *memRepo) List(ctx context.Context, viewer string, limit int, before time.Time) ([]*Post, error) {
	var out []*Post
	for _, p := range m.posts {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *memRepo) ListByAuthor(ctx context.Context, authorID, viewer string, limit int) ([]*Post, error) {
	var out []*Post
	for _, p := range m.posts {
		if p.Author.ID == authorID {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (m *memRepo) Likers(ctx context.Context, ids []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, id := range ids {
		for u := range m.likes[id] {
			out[id] = append(out[id], u)
		}
	}
	return out, nil
}

func (m *memRepo) SetLike(ctx context.Context, postID, userID string, liked bool) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.likes[postID] == nil {
		m.likes[postID] = map[string]bool{}
	}
	if liked {
		m.likes[postID][userID] = true
	} else {
		delete(m.likes[postID], userID)
	}
	return len(m.likes[postID]), nil
}

func (m *memRepo) AddComment(ctx context.Context, c *Comment) error {
	if m.err != nil {
		return m.err
	}
	m.comments = append(m.comments, c)
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memRepo) DeleteAll(ctx context.Context) error {
	m.posts = map[string]*Post{}
	return nil
}

var testAuthors = AuthorDirectoryFunc(func(ctx context.Context, userID string) (Author, error) {
	return Author{ID: userID, Name: "Misafir " + userID}, nil
})

func newTestService(t *testing.T, repo Repository, store media.Storage, authors AuthorDirectory) *Service {
	logger := zaptest.NewLogger(t)
	return NewService(repo, media.NewIngestor(store, "posts", 1<<20, logger), authors, logger)
}

func TestCreatePost_RejectsEmptyMediaBeforeAnyNetworkCall(t *testing.T) {
	store := &countingStorage{}
	authors := AuthorDirectoryFunc(func(ctx context.Context, userID string) (Author, error) {
		t.Fatal("author lookup must not happen for an empty post")
		return Author{}, nil
	})
	svc := newTestService(t, newMemRepo(), store, authors)

	_, err := svc.CreatePost(context.Background(), "u1", &CreatePostRequest{Caption: "boş"}, nil)

	assert.ErrorIs(t, err, ErrNoMedia)
	assert.Zero(t, store.puts)
}

func TestCreatePost_IngestsInOrderAndPersists(t *testing.T) {
	repo := newMemRepo()
	store := &countingStorage{}
	svc := newTestService(t, repo, store, testAuthors)

	var notified *Post
	svc.OnCreate(func(p *Post) { notified = p })

	post, err := svc.CreatePost(context.Background(), "u1", &CreatePostRequest{
		Caption:  "Gelin çıkışı #Gelin #düğün",
		Hashtags: []string{"düğün", "#aile"},
		Media: []string{
			"https://example.com/a.jpg",
			"data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
		},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Misafir u1", post.Author.Name)
	require.Len(t, post.Media, 2)
	assert.Equal(t, "https://example.com/a.jpg", post.Media[0].URL)
	assert.Contains(t, post.Media[1].URL, "posts/"+post.ID+"/1_")
	assert.Equal(t, []string{"#düğün", "#aile", "#gelin"}, post.Hashtags)
	assert.Equal(t, 1, store.puts)
	assert.Contains(t, repo.posts, post.ID)
	require.NotNil(t, notified)
	assert.Equal(t, post.ID, notified.ID)
}

func TestCreatePost_UploadFailureIsNotPersisted(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo, &countingStorage{fail: true}, testAuthors)

	_, err := svc.CreatePost(context.Background(), "u1", &CreatePostRequest{
		Media: []string{"data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)},
	}, nil)

	var perr *media.PartialUploadError
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, repo.posts)
}

func TestCreatePost_SampleModeIsReadOnly(t *testing.T) {
	store := &countingStorage{}
	svc := newTestService(t, NewSampleRepository(), store, testAuthors)

	_, err := svc.CreatePost(context.Background(), "u1", &CreatePostRequest{Media: []string{"https://example.com/a.jpg"}}, nil)
	assert.ErrorIs(t, err, database.ErrReadOnly)

	inline := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	_, err = svc.CreatePost(context.Background(), "u1", &CreatePostRequest{Media: []string{inline}}, nil)
	assert.ErrorIs(t, err, database.ErrReadOnly)
	assert.Equal(t, 0, store.puts)
}

func TestDeletePost_CleansUpMedia(t *testing.T) {
	repo := newMemRepo()
	store := &countingStorage{}
	svc := newTestService(t, repo, store, testAuthors)
	post := &Post{ID: "42", Author: Author{ID: "u1"}, Media: MediaList{{URL: "https://cdn.test/posts/42/0_1.png"}}}
	repo.posts["42"] = post

	require.NoError(t, svc.DeletePost(context.Background(), post))
	assert.NotContains(t, repo.posts, "42")
	assert.Equal(t, []string{"https://cdn.test/posts/42/0_1.png"}, store.deletes)
}

func TestNewComment(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &countingStorage{}, testAuthors)

	_, err := svc.NewComment(context.Background(), "p1", "u1", "   ")
	assert.ErrorIs(t, err, ErrEmptyComment)

	c, err := svc.NewComment(context.Background(), "p1", "u2", " Tebrikler! ")
	require.NoError(t, err)
	assert.Equal(t, "Tebrikler!", c.Text)
	assert.Equal(t, "Misafir u2", c.AuthorName)
	assert.Equal(t, "p1", c.PostID)
}

func TestCanDelete(t *testing.T) {
	post := &Post{Author: Author{ID: "u1"}}
	assert.True(t, CanDelete(post, "u1", false))
	assert.False(t, CanDelete(post, "u2", false))
	assert.True(t, CanDelete(post, "u2", true))
}

func TestSampleRepository(t *testing.T) {
	repo := NewSampleRepository()

	list, err := repo.List(context.Background(), "", 2, time.Time{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))

	list[0].Caption = "changed"
	again, _ := repo.Get(context.Background(), list[0].ID, "")
	assert.NotEqual(t, "changed", again.Caption)

	_, err = repo.SetLike(context.Background(), "sample-1", "u1", true)
	assert.ErrorIs(t, err, database.ErrReadOnly)
}
