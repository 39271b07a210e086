//internal/profile/repository.go

package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/imadgeboyega/wedding-backend/internal/common/database"
)

// Repository reads and edits profile columns of the users table
type Repository interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	GetByUsername(ctx context.Context, username string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	UpdateAvatar(ctx context.Context, userID, url string) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const profileColumns = `id, display_name, username, bio, avatar_url, created_at, updated_at`

func (r *postgresRepository) Get(ctx context.Context, userID string) (*Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1`, userID)
}

func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM users WHERE username = $1`, username)
}

func (r *postgresRepository) getOne(ctx context.Context, query string, arg interface{}) (*Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Profile) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET display_name = $2, username = $3, bio = $4, updated_at = $5
		WHERE id = $1`,
		p.ID, p.DisplayName, p.Username, p.Bio, p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return requireRow(res)
}

func (r *postgresRepository) UpdateAvatar(ctx context.Context, userID, url string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar_url = $2, updated_at = NOW() WHERE id = $1`, userID, url)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// sampleRepository serves the demo users when no database is configured
type sampleRepository struct {
	profiles map[string]*Profile
}

// NewSampleRepository returns read-only profiles matching the demo feed
func NewSampleRepository() Repository {
	joined := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mert, elif := "mert", "elif"
	bio := "Düğünümüze hoş geldiniz!"
	return &sampleRepository{profiles: map[string]*Profile{
		"sample-user-1": {
			ID:          "sample-user-1",
			DisplayName: "Mert",
			Username:    &mert,
			AvatarURL:   "https://images.unsplash.com/photo-1500648767791-00dcc994a43e?w=200",
			CreatedAt:   joined,
			UpdatedAt:   joined,
		},
		"sample-user-2": {
			ID:          "sample-user-2",
			DisplayName: "Elif",
			Username:    &elif,
			Bio:         &bio,
			AvatarURL:   "https://images.unsplash.com/photo-1494790108377-be9c29b29330?w=200",
			CreatedAt:   joined,
			UpdatedAt:   joined,
		},
	}}
}

func (r *sampleRepository) ReadOnly() bool { return true }

func (r *sampleRepository) Get(ctx context.Context, userID string) (*Profile, error) {
	p, ok := r.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *sampleRepository) GetByUsername(ctx context.Context, username string) (*Profile, error) {
	for _, p := range r.profiles {
		if p.Username != nil && *p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrProfileNotFound
}

func (r *sampleRepository) Update(ctx context.Context, p *Profile) error {
	return database.ErrReadOnly
}

func (r *sampleRepository) UpdateAvatar(ctx context.Context, userID, url string) error {
	return database.ErrReadOnly
}
