// internal/posts/service.go
package posts

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imadgeboyega/wedding-backend/internal/caption"
	"github.com/imadgeboyega/wedding-backend/internal/common/database"
	"github.com/imadgeboyega/wedding-backend/internal/media"
)

// AuthorDirectory resolves the author shown on new posts and comments
type AuthorDirectory interface {
	LookupAuthor(ctx context.Context, userID string) (Author, error)
}

// AuthorDirectoryFunc adapts a function to AuthorDirectory
type AuthorDirectoryFunc func(ctx context.Context, userID string) (Author, error)

func (f AuthorDirectoryFunc) LookupAuthor(ctx context.Context, userID string) (Author, error) {
	return f(ctx, userID)
}

type Service struct {
	repo     Repository
	ingestor *media.Ingestor
	authors  AuthorDirectory
	logger   *zap.Logger

	mu        sync.RWMutex
	onCreated []func(*Post)
}

func NewService(repo Repository, ingestor *media.Ingestor, authors AuthorDirectory, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		ingestor: ingestor,
		authors:  authors,
		logger:   logger,
	}
}

// OnCreate registers fn to receive every newly persisted post
func (s *Service) OnCreate(fn func(*Post)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCreated = append(s.onCreated, fn)
}

// CreatePost ingests the media references in order and stores the post.
// Empty media and read-only mode are rejected before anything is uploaded.
func (s *Service) CreatePost(ctx context.Context, authorID string, req *CreatePostRequest, files media.Files) (*Post, error) {
	if len(req.Media) == 0 {
		return nil, ErrNoMedia
	}
	if database.IsReadOnly(s.repo) {
		return nil, database.ErrReadOnly
	}

	author, err := s.authors.LookupAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	items, err := s.ingestor.IngestAll(ctx, id, req.Media, files)
	if err != nil {
		return nil, err
	}

	post := &Post{
		ID:        id,
		Author:    author,
		Media:     MediaList(items),
		Caption:   strings.TrimSpace(req.Caption),
		Hashtags:  MergeHashtags(req.Caption, req.Hashtags),
		Comments:  []Comment{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}

	s.logger.Info("post created",
		zap.String("post_id", post.ID),
		zap.String("author_id", author.ID),
		zap.Int("media", len(post.Media)),
	)

	s.mu.RLock()
	listeners := s.onCreated
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(post.Clone())
	}
	return post, nil
}

func (s *Service) GetPost(ctx context.Context, id, viewer string) (*Post, error) {
	return s.repo.Get(ctx, id, viewer)
}

func (s *Service) ListFeed(ctx context.Context, viewer string, limit int, before time.Time) ([]*Post, error) {
	return s.repo.List(ctx, viewer, limit, before)
}

func (s *Service) ListUserPosts(ctx context.Context, authorID, viewer string, limit int) ([]*Post, error) {
	return s.repo.ListByAuthor(ctx, authorID, viewer, limit)
}

func (s *Service) Likers(ctx context.Context, postIDs []string) (map[string][]string, error) {
	return s.repo.Likers(ctx, postIDs)
}

func (s *Service) SetLike(ctx context.Context, postID, userID string, liked bool) (int, error) {
	return s.repo.SetLike(ctx, postID, userID, liked)
}

// NewComment builds a comment by the user. It is not persisted.
func (s *Service) NewComment(ctx context.Context, postID, authorID, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	author, err := s.authors.LookupAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return &Comment{
		ID:         uuid.New().String(),
		PostID:     postID,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (s *Service) AddComment(ctx context.Context, comment *Comment) error {
	return s.repo.AddComment(ctx, comment)
}

// DeletePost removes the post. Callers check CanDelete first. Stored media
// is cleaned up best effort.
func (s *Service) DeletePost(ctx context.Context, post *Post) error {
	if err := s.repo.Delete(ctx, post.ID); err != nil {
		return err
	}
	for _, item := range post.Media {
		if err := s.ingestor.Storage().Delete(ctx, item.URL); err != nil {
			s.logger.Warn("failed to delete post media", zap.String("post_id", post.ID), zap.Error(err))
		}
	}
	s.logger.Info("post deleted", zap.String("post_id", post.ID))
	return nil
}

// DeleteAll wipes every post
func (s *Service) DeleteAll(ctx context.Context) error {
	return s.repo.DeleteAll(ctx)
}

// CanDelete reports whether the requester may delete the post
func CanDelete(post *Post, requester string, admin bool) bool {
	return admin || post.Author.ID == requester
}

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// MergeHashtags combines explicit tags with the ones written in the caption
// as a set, keeping first-seen order.
func MergeHashtags(text string, explicit []string) []string {
	all := append(append([]string{}, explicit...), hashtagPattern.FindAllString(text, -1)...)
	return caption.NormalizeHashtags(all)
}
