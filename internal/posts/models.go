// internal/posts/models.go
package posts

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/imadgeboyega/wedding-backend/internal/media"
)

// Author is the denormalized author shown on a post
type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Post is a carousel of media with caption and hashtags. Liked is computed
// for the viewer and never stored.
type Post struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Media     MediaList `json:"media"`
	Caption   string    `json:"caption"`
	Hashtags  []string  `json:"hashtags"`
	LikeCount int       `json:"like_count"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
	Liked     bool      `json:"liked"`
}

// Clone returns a copy that shares no slices with p
func (p *Post) Clone() *Post {
	cp := *p
	cp.Media = append(MediaList(nil), p.Media...)
	cp.Hashtags = append([]string(nil), p.Hashtags...)
	cp.Comments = append([]Comment(nil), p.Comments...)
	return &cp
}

// Comment is append-only
type Comment struct {
	ID         string    `json:"id" db:"id"`
	PostID     string    `json:"-" db:"post_id"`
	AuthorID   string    `json:"author_id" db:"author_id"`
	AuthorName string    `json:"author_name" db:"author_name"`
	Text       string    `json:"text" db:"text"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// MediaList is the ordered carousel, stored as JSONB
type MediaList []media.Item

// Scan implements sql.Scanner for JSONB columns
func (m *MediaList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported media column type %T", value)
	}
}

// Value implements driver.Valuer for JSONB columns
func (m MediaList) Value() (driver.Value, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m)
}

// CreatePostRequest lists media references in carousel order. A reference
// is a remote URL, "blob:<part>" naming a file part of the same request, or
// an inline data URL.
type CreatePostRequest struct {
	Caption  string   `json:"caption" validate:"max=2200"`
	Hashtags []string `json:"hashtags" validate:"max=30"`
	Media    []string `json:"media"`
}

// CommentRequest adds a comment
type CommentRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

var (
	ErrPostNotFound = errors.New("post not found")
	ErrNoMedia      = errors.New("a post needs at least one photo or video")
	ErrForbidden    = errors.New("not allowed to modify this post")
	ErrEmptyComment = errors.New("comment text is empty")
)
