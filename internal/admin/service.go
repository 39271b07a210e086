package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var actionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_actions_total",
		Help: "Moderation actions by type and result",
	},
	[]string{"action", "result"},
)

// FeedModerator removes posts through the live feed
type FeedModerator interface {
	DeleteAs(ctx context.Context, postID, requester string, admin bool) error
	Clear()
}

// BlogModerator removes blog posts
type BlogModerator interface {
	DeletePost(ctx context.Context, id string) error
}

// Resetter wipes one data set
type Resetter interface {
	DeleteAll(ctx context.Context) error
}

// Dataset names a Resetter in logs and errors
type Dataset struct {
	Name  string
	Store Resetter
}

type Service struct {
	feed     FeedModerator
	blog     BlogModerator
	datasets []Dataset
	logger   *zap.Logger
}

func NewService(feed FeedModerator, blog BlogModerator, datasets []Dataset, logger *zap.Logger) *Service {
	return &Service{feed: feed, blog: blog, datasets: datasets, logger: logger}
}

func (s *Service) DeletePost(ctx context.Context, adminID, postID string) error {
	err := s.feed.DeleteAs(ctx, postID, adminID, true)
	s.record("delete_post", adminID, postID, err)
	return err
}

func (s *Service) DeleteBlogPost(ctx context.Context, adminID, postID string) error {
	err := s.blog.DeletePost(ctx, postID)
	s.record("delete_blog_post", adminID, postID, err)
	return err
}

// ResetAll wipes every dataset, continuing past failures, then empties the
// in-memory feed. The joined error lists each dataset that failed.
func (s *Service) ResetAll(ctx context.Context, adminID string) error {
	var errs []error
	for _, ds := range s.datasets {
		if err := ds.Store.DeleteAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ds.Name, err))
		}
	}
	s.feed.Clear()

	err := errors.Join(errs...)
	s.record("reset_all", adminID, "", err)
	return err
}

func (s *Service) record(action, adminID, target string, err error) {
	fields := []zap.Field{
		zap.String("action", action),
		zap.String("admin_id", adminID),
	}
	if target != "" {
		fields = append(fields, zap.String("target", target))
	}

	if err != nil {
		actionsTotal.WithLabelValues(action, "error").Inc()
		s.logger.Warn("admin action failed", append(fields, zap.Error(err))...)
		return
	}
	actionsTotal.WithLabelValues(action, "ok").Inc()
	s.logger.Info("admin action", fields...)
}
