// internal/auth/models.go
// Users, requests and responses of the authentication flow

package auth

import (
	"time"
)

// Providers a user can sign in with
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User is an account. The ID is the foreign key for all user-owned data.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash *string   `json:"-" db:"password_hash"` // nil for Google accounts
	Provider     string    `json:"provider" db:"provider"`
	ProviderID   *string   `json:"-" db:"provider_id"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	AvatarURL    string    `json:"avatar_url" db:"avatar_url"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`

	// Role is decided at sign-in and never stored
	Role string `json:"role" db:"-"`
}

// SignupRequest creates an email/password account
type SignupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=100"`
	DisplayName string `json:"display_name" validate:"required,min=2,max=60"`
}

// SigninRequest authenticates with email and password
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleAuthRequest carries the ID token obtained by the frontend
type GoogleAuthRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// RefreshTokenRequest exchanges a refresh token for a new pair
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// PasswordResetRequest starts a reset by email
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest completes a reset
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=100"`
}

// AuthResponse is returned after a successful sign-in
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// GoogleIdentity is the verified subject of a Google ID token
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
}
