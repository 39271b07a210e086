// internal/posts/repository.go
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository persists posts, likes and comments
type Repository interface {
	Create(ctx context.Context, post *Post) error
	Get(ctx context.Context, id, viewer string) (*Post, error)
	List(ctx context.Context, viewer string, limit int, before time.Time) ([]*Post, error)
	ListByAuthor(ctx context.Context, authorID, viewer string, limit int) ([]*Post, error)
	Likers(ctx context.Context, postIDs []string) (map[string][]string, error)
	SetLike(ctx context.Context, postID, userID string, liked bool) (int, error)
	AddComment(ctx context.Context, comment *Comment) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

type postRow struct {
	ID           string         `db:"id"`
	AuthorID     string         `db:"author_id"`
	AuthorName   string         `db:"author_name"`
	AuthorAvatar string         `db:"author_avatar"`
	Caption      string         `db:"caption"`
	Hashtags     pq.StringArray `db:"hashtags"`
	Media        MediaList      `db:"media"`
	LikeCount    int            `db:"like_count"`
	CreatedAt    time.Time      `db:"created_at"`
	Liked        bool           `db:"liked"`
}

func (r postRow) toPost() *Post {
	return &Post{
		ID:        r.ID,
		Author:    Author{ID: r.AuthorID, Name: r.AuthorName, Avatar: r.AuthorAvatar},
		Media:     r.Media,
		Caption:   r.Caption,
		Hashtags:  []string(r.Hashtags),
		LikeCount: r.LikeCount,
		Comments:  []Comment{},
		CreatedAt: r.CreatedAt,
		Liked:     r.Liked,
	}
}

// $1 is always the viewer
const selectPosts = `
	SELECT p.id, p.author_id, p.author_name, p.author_avatar, p.caption, p.hashtags,
	       p.media, p.like_count, p.created_at,
	       EXISTS(SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = $1) AS liked
	FROM posts p`

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, post *Post) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, author_name, author_avatar, caption, hashtags, media, like_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)`,
		post.ID, post.Author.ID, post.Author.Name, post.Author.Avatar,
		post.Caption, pq.Array(post.Hashtags), post.Media, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (r *postgresRepository) Get(ctx context.Context, id, viewer string) (*Post, error) {
	var row postRow
	err := r.db.GetContext(ctx, &row, selectPosts+` WHERE p.id = $2`, viewer, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	list := []*Post{row.toPost()}
	if err := r.attachComments(ctx, list); err != nil {
		return nil, err
	}
	return list[0], nil
}

func (r *postgresRepository) List(ctx context.Context, viewer string, limit int, before time.Time) ([]*Post, error) {
	if before.IsZero() {
		before = time.Now().Add(time.Minute)
	}
	return r.query(ctx, selectPosts+` WHERE p.created_at < $2 ORDER BY p.created_at DESC LIMIT $3`,
		viewer, before, limit)
}

func (r *postgresRepository) ListByAuthor(ctx context.Context, authorID, viewer string, limit int) ([]*Post, error) {
	return r.query(ctx, selectPosts+` WHERE p.author_id = $2 ORDER BY p.created_at DESC LIMIT $3`,
		viewer, authorID, limit)
}

func (r *postgresRepository) query(ctx context.Context, query string, args ...interface{}) ([]*Post, error) {
	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	list := make([]*Post, len(rows))
	for i, row := range rows {
		list[i] = row.toPost()
	}
	if err := r.attachComments(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *postgresRepository) attachComments(ctx context.Context, list []*Post) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	byID := make(map[string]*Post, len(list))
	for i, p := range list {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	var comments []Comment
	err := r.db.SelectContext(ctx, &comments, `
		SELECT id, post_id, author_id, author_name, text, created_at
		FROM post_comments
		WHERE post_id = ANY($1)
		ORDER BY created_at ASC`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load comments: %w", err)
	}
	for _, c := range comments {
		if p, ok := byID[c.PostID]; ok {
			p.Comments = append(p.Comments, c)
		}
	}
	return nil
}

func (r *postgresRepository) Likers(ctx context.Context, postIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		PostID string `db:"post_id"`
		UserID string `db:"user_id"`
	}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT post_id, user_id FROM post_likes WHERE post_id = ANY($1)`, pq.Array(postIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load likes: %w", err)
	}
	for _, row := range rows {
		out[row.PostID] = append(out[row.PostID], row.UserID)
	}
	return out, nil
}

// SetLike records or removes the user's like and keeps like_count in step.
// Repeating the same state is a no-op.
func (r *postgresRepository) SetLike(ctx context.Context, postID, userID string, liked bool) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	delta := 1
	if liked {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, postID, userID)
	} else {
		delta = -1
		res, err = tx.ExecContext(ctx,
			`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	}
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, ErrPostNotFound
		}
		return 0, fmt.Errorf("failed to update like: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		delta = 0
	}

	var count int
	err = tx.GetContext(ctx, &count,
		`UPDATE posts SET like_count = GREATEST(like_count + $1, 0) WHERE id = $2 RETURNING like_count`, delta, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPostNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to update like count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit like: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) AddComment(ctx context.Context, c *Comment) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO post_comments (id, post_id, author_id, author_name, text, created_at)
		VALUES (:id, :post_id, :author_id, :author_name, :text, :created_at)`, c)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrPostNotFound
		}
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPostNotFound
	}
	return nil
}

// DeleteAll removes every post. Likes and comments cascade.
func (r *postgresRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("failed to delete posts: %w", err)
	}
	return nil
}
