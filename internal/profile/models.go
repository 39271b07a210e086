// internal/profile/models.go

package profile

import (
	"errors"
	"time"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidAvatar   = errors.New("avatar must be an image")
)

// Profile is the public part of a user record
type Profile struct {
	ID          string    `json:"id" db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Username    *string   `json:"username,omitempty" db:"username"`
	Bio         *string   `json:"bio,omitempty" db:"bio"`
	AvatarURL   string    `json:"avatar_url" db:"avatar_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateProfileRequest carries the editable fields. Nil fields stay as they are;
// an empty username or bio clears it.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=1,max=60"`
	Username    *string `json:"username" validate:"omitempty,max=30"`
	Bio         *string `json:"bio" validate:"omitempty,max=300"`
}

type AvatarRequest struct {
	Avatar string `json:"avatar" validate:"required"`
}
