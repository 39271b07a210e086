// internal/auth/service.go
// Sign-up, sign-in, token refresh and password reset

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/imadgeboyega/wedding-backend/internal/common/utils"
)

var signinsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_signins_total",
		Help: "Sign-in attempts by method and result",
	},
	[]string{"method", "result"},
)

// Service is the authentication API used by handlers and middleware
type Service interface {
	Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error)
	Signin(ctx context.Context, req *SigninRequest) (*AuthResponse, error)
	GoogleAuth(ctx context.Context, req *GoogleAuthRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)
	InitiatePasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	GetUserByID(ctx context.Context, userID string) (*User, error)
}

// Config holds service configuration
type Config struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	BCryptCost         int
	ResetExpiry        time.Duration
	ResetURL           string

	// AllowedDomain restricts sign-in to one email domain when set
	AllowedDomain string
	// IsAdmin decides the role claim from the account email
	IsAdmin func(email string) bool
}

type service struct {
	repo    Repository
	limiter AttemptLimiter
	resets  ResetStore
	mailer  Mailer
	google  GoogleVerifier
	config  *Config
	logger  *zap.Logger
}

// NewService creates the auth service
func NewService(repo Repository, limiter AttemptLimiter, resets ResetStore, mailer Mailer,
	google GoogleVerifier, config *Config, logger *zap.Logger) Service {
	if config.IsAdmin == nil {
		config.IsAdmin = func(string) bool { return false }
	}
	return &service{
		repo:    repo,
		limiter: limiter,
		resets:  resets,
		mailer:  mailer,
		google:  google,
		config:  config,
		logger:  logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) checkDomain(email string) error {
	if s.config.AllowedDomain == "" {
		return nil
	}
	if !strings.HasSuffix(email, "@"+strings.ToLower(s.config.AllowedDomain)) {
		return ErrDomainNotAllowed
	}
	return nil
}

func (s *service) Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if err := s.checkDomain(email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashStr := string(hash)

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: &hashStr,
		Provider:     ProviderPassword,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return s.createAuthSession(user)
}

func (s *service) Signin(ctx context.Context, req *SigninRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if err := s.checkDomain(email); err != nil {
		signinsTotal.WithLabelValues(ProviderPassword, "domain").Inc()
		return nil, err
	}

	blocked, err := s.limiter.Blocked(ctx, email)
	if err != nil {
		s.logger.Warn("attempt limiter unavailable", zap.Error(err))
	}
	if blocked {
		signinsTotal.WithLabelValues(ProviderPassword, "rate_limited").Inc()
		return nil, ErrTooManyAttempts
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.recordFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == nil {
		return nil, ErrSocialAccount
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.logger.Warn("failed to reset attempts", zap.Error(err))
	}
	signinsTotal.WithLabelValues(ProviderPassword, "ok").Inc()
	return s.createAuthSession(user)
}

func (s *service) recordFailure(ctx context.Context, email string) {
	signinsTotal.WithLabelValues(ProviderPassword, "invalid").Inc()
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.logger.Warn("failed to record attempt", zap.Error(err))
	}
}

func (s *service) GoogleAuth(ctx context.Context, req *GoogleAuthRequest) (*AuthResponse, error) {
	identity, err := s.google.Verify(ctx, req.IDToken)
	if err != nil {
		signinsTotal.WithLabelValues(ProviderGoogle, "invalid").Inc()
		return nil, err
	}

	email := normalizeEmail(identity.Email)
	if err := s.checkDomain(email); err != nil {
		signinsTotal.WithLabelValues(ProviderGoogle, "domain").Inc()
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		now := time.Now().UTC()
		user = &User{
			ID:          uuid.New().String(),
			Email:       email,
			Provider:    ProviderGoogle,
			ProviderID:  &identity.Subject,
			DisplayName: strings.Split(email, "@")[0],
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case user.Provider != ProviderGoogle:
		if err := s.repo.LinkProvider(ctx, user.ID, ProviderGoogle, identity.Subject); err != nil {
			return nil, err
		}
		user.Provider = ProviderGoogle
	}

	signinsTotal.WithLabelValues(ProviderGoogle, "ok").Inc()
	return s.createAuthSession(user)
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := utils.ValidateJWT(refreshToken, s.config.JWTSecret)
	if err != nil || claims.Type != utils.TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.createAuthSession(user)
}

func (s *service) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	claims, err := utils.ValidateJWT(token, s.config.JWTSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// InitiatePasswordReset mails a reset link. Unknown and Google accounts get
// no mail and no error so the endpoint does not reveal which emails exist.
func (s *service) InitiatePasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.PasswordHash == nil {
		return nil
	}

	token := generateSecureToken()
	if err := s.resets.Save(ctx, token, user.ID, s.config.ResetExpiry); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	link := s.config.ResetURL + "?token=" + url.QueryEscape(token)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, link); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.resets.Consume(ctx, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.BCryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.logger.Info("password reset", zap.String("user_id", userID))
	return nil
}

func (s *service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = s.roleFor(user.Email)
	return user, nil
}

func (s *service) roleFor(email string) string {
	if s.config.IsAdmin(email) {
		return utils.RoleAdmin
	}
	return utils.RoleUser
}

func (s *service) createAuthSession(user *User) (*AuthResponse, error) {
	user.Role = s.roleFor(user.Email)

	access, err := utils.GenerateJWT(&utils.JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Type:   utils.TokenTypeAccess,
	}, s.config.JWTSecret, s.config.AccessTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := utils.GenerateJWT(&utils.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Type:   utils.TokenTypeRefresh,
	}, s.config.JWTSecret, s.config.RefreshTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.config.AccessTokenExpiry.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

func generateSecureToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
