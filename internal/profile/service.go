//internal/profile/service.go

package profile

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/imadgeboyega/wedding-backend/internal/common/database"
	"github.com/imadgeboyega/wedding-backend/internal/media"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{3,30}$`)

type Service struct {
	repo     Repository
	ingestor *media.Ingestor
	logger   *zap.Logger
}

// NewService expects an ingestor scoped to the avatar namespace
func NewService(repo Repository, ingestor *media.Ingestor, logger *zap.Logger) *Service {
	return &Service{repo: repo, ingestor: ingestor, logger: logger}
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	return s.repo.Get(ctx, userID)
}

// UpdateProfile applies the non-nil fields. Usernames are lowercased and
// must be unique across users.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Bio != nil {
		p.Bio = optional(strings.TrimSpace(*req.Bio))
	}
	if req.Username != nil {
		username, err := s.claimUsername(ctx, userID, *req.Username)
		if err != nil {
			return nil, err
		}
		p.Username = username
	}

	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) claimUsername(ctx context.Context, userID, raw string) (*string, error) {
	username := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "@")))
	if username == "" {
		return nil, nil
	}
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}

	owner, err := s.repo.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, ErrProfileNotFound):
		return &username, nil
	case err != nil:
		return nil, err
	case owner.ID != userID:
		return nil, ErrUsernameTaken
	}
	return &username, nil
}

// UpdateAvatar ingests one image reference and stores its URL. The previous
// avatar is removed from storage best effort.
func (s *Service) UpdateAvatar(ctx context.Context, userID, ref string, files media.Files) (*Profile, error) {
	if database.IsReadOnly(s.repo) {
		return nil, database.ErrReadOnly
	}
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.ingestor.IngestAll(ctx, userID, []string{ref}, files)
	if err != nil {
		return nil, err
	}
	avatar := items[0]
	if avatar.Type != media.TypeImage {
		s.discard(ctx, avatar.URL)
		return nil, ErrInvalidAvatar
	}

	if err := s.repo.UpdateAvatar(ctx, userID, avatar.URL); err != nil {
		s.discard(ctx, avatar.URL)
		return nil, err
	}
	if p.AvatarURL != "" && p.AvatarURL != avatar.URL {
		s.discard(ctx, p.AvatarURL)
	}

	p.AvatarURL = avatar.URL
	return p, nil
}

func (s *Service) discard(ctx context.Context, url string) {
	if err := s.ingestor.Storage().Delete(ctx, url); err != nil {
		s.logger.Warn("failed to delete avatar", zap.String("url", url), zap.Error(err))
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
