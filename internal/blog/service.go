package blog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imadgeboyega/wedding-backend/internal/common/database"
	"github.com/imadgeboyega/wedding-backend/internal/media"
)

const defaultListLimit = 20

type Service struct {
	repo     Repository
	ingestor *media.Ingestor
	logger   *zap.Logger
}

// NewService expects an ingestor scoped to the blog namespace
func NewService(repo Repository, ingestor *media.Ingestor, logger *zap.Logger) *Service {
	return &Service{repo: repo, ingestor: ingestor, logger: logger}
}

// ListPosts returns the newest posts first
func (s *Service) ListPosts(ctx context.Context, limit int) ([]*Post, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) GetPost(ctx context.Context, id string) (*Post, error) {
	return s.repo.Get(ctx, id)
}

// CreatePost publishes a post. The cover, when given, goes through media
// ingestion before anything is written.
func (s *Service) CreatePost(ctx context.Context, req *CreatePostRequest, files media.Files) (*Post, error) {
	if database.IsReadOnly(s.repo) {
		return nil, database.ErrReadOnly
	}
	post := &Post{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Content:     req.Content,
		Author:      strings.TrimSpace(req.Author),
		PublishedAt: time.Now().UTC(),
	}

	if req.CoverImage != "" {
		items, err := s.ingestor.IngestAll(ctx, post.ID, []string{req.CoverImage}, files)
		if err != nil {
			return nil, err
		}
		post.CoverImageURL = items[0].URL
	}

	if err := s.repo.Create(ctx, post); err != nil {
		s.discardCover(ctx, post)
		return nil, err
	}
	s.logger.Info("blog post published", zap.String("post_id", post.ID))
	return post, nil
}

// DeletePost removes a post and its stored cover
func (s *Service) DeletePost(ctx context.Context, id string) error {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.discardCover(ctx, post)
	s.logger.Info("blog post deleted", zap.String("post_id", id))
	return nil
}

func (s *Service) DeleteAll(ctx context.Context) error {
	return s.repo.DeleteAll(ctx)
}

func (s *Service) discardCover(ctx context.Context, post *Post) {
	if post.CoverImageURL == "" {
		return
	}
	if err := s.ingestor.Storage().Delete(ctx, post.CoverImageURL); err != nil {
		s.logger.Warn("failed to delete blog cover", zap.String("post_id", post.ID), zap.Error(err))
	}
}
