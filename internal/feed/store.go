// Package feed keeps the recent posts window in memory and applies user
// actions to it before they are persisted.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/imadgeboyega/wedding-backend/internal/posts"
)

var persistFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "feed_persist_failures_total",
		Help: "Background writes of feed actions that failed",
	},
	[]string{"action"},
)

// Persister is the durable side of the feed. *posts.Service implements it.
type Persister interface {
	ListFeed(ctx context.Context, viewer string, limit int, before time.Time) ([]*posts.Post, error)
	GetPost(ctx context.Context, id, viewer string) (*posts.Post, error)
	Likers(ctx context.Context, postIDs []string) (map[string][]string, error)
	SetLike(ctx context.Context, postID, userID string, liked bool) (int, error)
	AddComment(ctx context.Context, comment *posts.Comment) error
	DeletePost(ctx context.Context, post *posts.Post) error
}

type entry struct {
	post   *posts.Post
	likers map[string]bool
}

// Store holds the newest posts. Likes and comments are applied locally and
// written in the background; a failed background write is logged and the
// local state stays until the next Load. Delete is written synchronously
// and restored locally when it fails.
type Store struct {
	persister Persister
	window    int
	logger    *zap.Logger

	mu      sync.RWMutex
	entries []*entry
	index   map[string]*entry

	pending sync.WaitGroup

	likeMu    sync.Mutex
	likeLocks map[likeKey]*keyLock
}

type likeKey struct {
	post, user string
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

var ErrNotLoaded = errors.New("post is not in the feed window")

func NewStore(persister Persister, window int, logger *zap.Logger) *Store {
	return &Store{
		persister: persister,
		window:    window,
		logger:    logger,
		index:     make(map[string]*entry),
		likeLocks: make(map[likeKey]*keyLock),
	}
}

// Load replaces local state with the persisted window
func (s *Store) Load(ctx context.Context) error {
	list, err := s.persister.ListFeed(ctx, "", s.window, time.Time{})
	if err != nil {
		return err
	}
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	likers, err := s.persister.Likers(ctx, ids)
	if err != nil {
		return err
	}

	entries := make([]*entry, 0, len(list))
	index := make(map[string]*entry, len(list))
	for _, p := range list {
		e := &entry{post: p, likers: make(map[string]bool)}
		p.Liked = false
		for _, u := range likers[p.ID] {
			e.likers[u] = true
		}
		entries = append(entries, e)
		index[p.ID] = e
	}

	s.mu.Lock()
	s.entries = entries
	s.index = index
	s.mu.Unlock()

	s.logger.Debug("feed loaded", zap.Int("posts", len(entries)))
	return nil
}

func (e *entry) view(viewer string) *posts.Post {
	p := e.post.Clone()
	p.Liked = viewer != "" && e.likers[viewer]
	return p
}

// Feed returns up to limit posts, newest first, annotated for viewer
func (s *Store) Feed(viewer string, limit int) []*posts.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]*posts.Post, 0, limit)
	for _, e := range s.entries[:limit] {
		out = append(out, e.view(viewer))
	}
	return out
}

// Get returns one post of the window
func (s *Store) Get(postID, viewer string) (*posts.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[postID]
	if !ok {
		return nil, false
	}
	return e.view(viewer), true
}

// Insert puts a freshly created post at the top of the window
func (s *Store) Insert(post *posts.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[post.ID]; ok {
		return
	}
	p := post.Clone()
	p.Liked = false
	e := &entry{post: p, likers: make(map[string]bool)}
	s.entries = append([]*entry{e}, s.entries...)
	s.index[p.ID] = e

	if s.window > 0 && len(s.entries) > s.window {
		for _, old := range s.entries[s.window:] {
			delete(s.index, old.post.ID)
		}
		s.entries = s.entries[:s.window]
	}
}

// ToggleLike flips the viewer's like and the counter in one step and
// persists in the background. Writes for one post and viewer run one at a
// time and each stores the local state current when it runs, so the last
// toggle is what ends up persisted.
func (s *Store) ToggleLike(ctx context.Context, postID, viewer string) (bool, int, error) {
	s.mu.Lock()
	e, ok := s.index[postID]
	if !ok {
		s.mu.Unlock()
		return false, 0, ErrNotLoaded
	}
	liked := !e.likers[viewer]
	if liked {
		e.likers[viewer] = true
		e.post.LikeCount++
	} else {
		delete(e.likers, viewer)
		if e.post.LikeCount > 0 {
			e.post.LikeCount--
		}
	}
	count := e.post.LikeCount
	s.mu.Unlock()

	s.background(ctx, "like", func(ctx context.Context) error {
		unlock := s.lockLike(postID, viewer)
		defer unlock()
		_, err := s.persister.SetLike(ctx, postID, viewer, s.likedLocally(postID, viewer, liked))
		return err
	})
	return liked, count, nil
}

// AddComment appends locally and persists in the background
func (s *Store) AddComment(ctx context.Context, comment *posts.Comment) error {
	s.mu.Lock()
	e, ok := s.index[comment.PostID]
	if !ok {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	e.post.Comments = append(e.post.Comments, *comment)
	s.mu.Unlock()

	c := *comment
	s.background(ctx, "comment", func(ctx context.Context) error {
		return s.persister.AddComment(ctx, &c)
	})
	return nil
}

// DeleteAs deletes the post when requester is its author or an admin.
// Posts outside the window are looked up in the database.
func (s *Store) DeleteAs(ctx context.Context, postID, requester string, admin bool) error {
	post, ok := s.Get(postID, "")
	if !ok {
		var err error
		if post, err = s.persister.GetPost(ctx, postID, ""); err != nil {
			return err
		}
	}
	if !posts.CanDelete(post, requester, admin) {
		return posts.ErrForbidden
	}
	return s.Delete(ctx, post)
}

// Delete removes the post locally, then persists. On failure the post goes
// back to its position and the error is returned.
func (s *Store) Delete(ctx context.Context, post *posts.Post) error {
	s.mu.Lock()
	pos := -1
	var removed *entry
	for i, e := range s.entries {
		if e.post.ID == post.ID {
			pos, removed = i, e
			break
		}
	}
	if removed != nil {
		s.entries = append(s.entries[:pos:pos], s.entries[pos+1:]...)
		delete(s.index, post.ID)
	}
	s.mu.Unlock()

	if err := s.persister.DeletePost(ctx, post); err != nil {
		if removed != nil {
			s.restore(pos, removed)
		}
		return err
	}
	return nil
}

func (s *Store) restore(pos int, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[e.post.ID]; ok {
		return
	}
	if pos > len(s.entries) {
		pos = len(s.entries)
	}
	s.entries = append(s.entries[:pos:pos], append([]*entry{e}, s.entries[pos:]...)...)
	s.index[e.post.ID] = e
}

// Clear drops all local state
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.index = make(map[string]*entry)
}

// Wait blocks until background writes have finished
func (s *Store) Wait() {
	s.pending.Wait()
}

func (s *Store) lockLike(postID, viewer string) func() {
	key := likeKey{post: postID, user: viewer}

	s.likeMu.Lock()
	l, ok := s.likeLocks[key]
	if !ok {
		l = &keyLock{}
		s.likeLocks[key] = l
	}
	l.refs++
	s.likeMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.likeMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.likeLocks, key)
		}
		s.likeMu.Unlock()
	}
}

// likedLocally falls back to the toggled value once the post left the window
func (s *Store) likedLocally(postID, viewer string, fallback bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.index[postID]; ok {
		return e.likers[viewer]
	}
	return fallback
}

func (s *Store) background(ctx context.Context, action string, write func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := write(ctx); err != nil {
			persistFailures.WithLabelValues(action).Inc()
			s.logger.Warn("feed write failed", zap.String("action", action), zap.Error(err))
		}
	}()
}
