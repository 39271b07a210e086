package posts

import (
	"context"
	"sort"
	"time"

	"github.com/imadgeboyega/wedding-backend/internal/common/database"
	"github.com/imadgeboyega/wedding-backend/internal/media"
)

// sampleRepository serves a fixed feed when no database is configured.
// Every write fails with database.ErrReadOnly.
type sampleRepository struct {
	posts []*Post
}

// NewSampleRepository returns the read-only demo feed
func NewSampleRepository() Repository {
	base := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)
	return &sampleRepository{posts: []*Post{
		{
			ID:     "sample-3",
			Author: Author{ID: "sample-user-2", Name: "Elif", Avatar: "https://images.unsplash.com/photo-1494790108377-be9c29b29330?w=200"},
			Media: MediaList{
				{URL: "https://images.unsplash.com/photo-1519741497674-611481863552?w=1080", Type: media.TypeImage},
				{URL: "https://images.unsplash.com/photo-1511285560929-80b456fea0bc?w=1080", Type: media.TypeImage},
			},
			Caption:   "İlk dans 💃",
			Hashtags:  []string{"#düğün", "#ilkdans"},
			LikeCount: 12,
			Comments: []Comment{
				{ID: "sample-c1", PostID: "sample-3", AuthorID: "sample-user-1", AuthorName: "Mert", Text: "Harika görünüyorsunuz!", CreatedAt: base.Add(2*time.Hour + 5*time.Minute)},
			},
			CreatedAt: base.Add(2 * time.Hour),
		},
		{
			ID:        "sample-2",
			Author:    Author{ID: "sample-user-1", Name: "Mert", Avatar: "https://images.unsplash.com/photo-1500648767791-00dcc994a43e?w=200"},
			Media:     MediaList{{URL: "https://images.unsplash.com/photo-1465495976277-4387d4b0b4c6?w=1080", Type: media.TypeImage}},
			Caption:   "Bu özel günün en güzel anlarından biri ✨",
			Hashtags:  []string{"#düğün", "#aşk", "#mutluluk", "#evlilik"},
			LikeCount: 8,
			Comments:  []Comment{},
			CreatedAt: base.Add(time.Hour),
		},
		{
			ID:        "sample-1",
			Author:    Author{ID: "sample-user-2", Name: "Elif", Avatar: "https://images.unsplash.com/photo-1494790108377-be9c29b29330?w=200"},
			Media:     MediaList{{URL: "https://images.unsplash.com/photo-1523438885200-e635ba2c371e?w=1080", Type: media.TypeImage}},
			Caption:   "Nikah masası hazır",
			Hashtags:  []string{"#nikah"},
			LikeCount: 3,
			Comments:  []Comment{},
			CreatedAt: base,
		},
	}}
}

func (r *sampleRepository) ReadOnly() bool { return true }

func (r *sampleRepository) Create(ctx context.Context, post *Post) error {
	return database.ErrReadOnly
}

func (r *sampleRepository) Get(ctx context.Context, id, viewer string) (*Post, error) {
	for _, p := range r.posts {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return nil, ErrPostNotFound
}

func (r *sampleRepository) List(ctx context.Context, viewer string, limit int, before time.Time) ([]*Post, error) {
	return r.filter(limit, func(p *Post) bool {
		return before.IsZero() || p.CreatedAt.Before(before)
	}), nil
}

func (r *sampleRepository) ListByAuthor(ctx context.Context, authorID, viewer string, limit int) ([]*Post, error) {
	return r.filter(limit, func(p *Post) bool { return p.Author.ID == authorID }), nil
}

func (r *sampleRepository) filter(limit int, keep func(*Post) bool) []*Post {
	out := make([]*Post, 0, len(r.posts))
	for _, p := range r.posts {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *sampleRepository) Likers(ctx context.Context, postIDs []string) (map[string][]string, error) {
	return map[string][]string{}, nil
}

func (r *sampleRepository) SetLike(ctx context.Context, postID, userID string, liked bool) (int, error) {
	return 0, database.ErrReadOnly
}

func (r *sampleRepository) AddComment(ctx context.Context, c *Comment) error {
	return database.ErrReadOnly
}

func (r *sampleRepository) Delete(ctx context.Context, id string) error {
	return database.ErrReadOnly
}

func (r *sampleRepository) DeleteAll(ctx context.Context) error {
	return database.ErrReadOnly
}
