package blog

import (
	"errors"
	"time"
)

var ErrPostNotFound = errors.New("blog post not found")

type Post struct {
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Content       string    `json:"content" db:"content"`
	CoverImageURL string    `json:"cover_image_url" db:"cover_image_url"`
	Author        string    `json:"author" db:"author"`
	PublishedAt   time.Time `json:"published_at" db:"published_at"`
}

// CreatePostRequest takes the cover as a remote URL, data URL or blob:<part>
type CreatePostRequest struct {
	Title      string `json:"title" validate:"required,max=200"`
	Content    string `json:"content" validate:"required"`
	CoverImage string `json:"cover_image"`
	Author     string `json:"author" validate:"max=100"`
}
