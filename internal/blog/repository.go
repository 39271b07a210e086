package blog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/imadgeboyega/wedding-backend/internal/common/database"
)

type Repository interface {
	List(ctx context.Context, limit int) ([]*Post, error)
	Get(ctx context.Context, id string) (*Post, error)
	Create(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const blogColumns = `id, title, content, cover_image_url, author, published_at`

func (r *postgresRepository) List(ctx context.Context, limit int) ([]*Post, error) {
	list := []*Post{}
	err := r.db.SelectContext(ctx, &list,
		`SELECT `+blogColumns+` FROM blog_posts ORDER BY published_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}
	return list, nil
}

func (r *postgresRepository) Get(ctx context.Context, id string) (*Post, error) {
	var p Post
	err := r.db.GetContext(ctx, &p, `SELECT `+blogColumns+` FROM blog_posts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blog post: %w", err)
	}
	return &p, nil
}

func (r *postgresRepository) Create(ctx context.Context, post *Post) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO blog_posts (id, title, content, cover_image_url, author, published_at)
		VALUES (:id, :title, :content, :cover_image_url, :author, :published_at)`, post)
	if err != nil {
		return fmt.Errorf("failed to create blog post: %w", err)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete blog post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts`); err != nil {
		return fmt.Errorf("failed to reset blog: %w", err)
	}
	return nil
}

// sampleRepository is the read-only demo blog
type sampleRepository struct {
	posts []*Post
}

func NewSampleRepository() Repository {
	base := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	return &sampleRepository{posts: []*Post{
		{
			ID:            "sample-blog-2",
			Title:         "Düğün günü programı",
			Content:       "Nikah saat 17:00'de, kokteyl 18:00'de, yemek 19:30'da başlıyor. İlk dansımızı kaçırmayın!",
			CoverImageURL: "https://images.unsplash.com/photo-1519225421980-715cb0215aed?w=1200",
			Author:        "Elif & Mert",
			PublishedAt:   base.Add(72 * time.Hour),
		},
		{
			ID:            "sample-blog-1",
			Title:         "Hikayemiz",
			Content:       "Bir kahve dükkanında başlayan hikayemiz bugün sizlerle birlikte yeni bir sayfaya geçiyor.",
			CoverImageURL: "https://images.unsplash.com/photo-1522673607200-164d1b6ce486?w=1200",
			Author:        "Elif & Mert",
			PublishedAt:   base,
		},
	}}
}

func (r *sampleRepository) ReadOnly() bool { return true }

func (r *sampleRepository) List(ctx context.Context, limit int) ([]*Post, error) {
	out := make([]*Post, 0, len(r.posts))
	for _, p := range r.posts {
		if len(out) == limit {
			break
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *sampleRepository) Get(ctx context.Context, id string) (*Post, error) {
	for _, p := range r.posts {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPostNotFound
}

func (r *sampleRepository) Create(ctx context.Context, post *Post) error {
	return database.ErrReadOnly
}

func (r *sampleRepository) Delete(ctx context.Context, id string) error {
	return database.ErrReadOnly
}

func (r *sampleRepository) DeleteAll(ctx context.Context) error {
	return database.ErrReadOnly
}
