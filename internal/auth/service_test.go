package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/imadgeboyega/wedding-backend/internal/common/utils"
)

type fakeGoogle struct {
	identity *GoogleIdentity
	err      error
}

func (f *fakeGoogle) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	return f.identity, f.err
}

type testDeps struct {
	svc    Service
	repo   Repository
	mailer *MockMailer
	google *fakeGoogle
}

func newTestService(t *testing.T, mutate func(*Config)) testDeps {
	cfg := &Config{
		JWTSecret:          "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		BCryptCost:         bcrypt.MinCost,
		ResetExpiry:        time.Minute,
		ResetURL:           "http://localhost:8080/reset-password",
		IsAdmin: func(email string) bool {
			return email == "gelin@example.com"
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	logger := zaptest.NewLogger(t)
	repo := NewMemoryRepository()
	mailer := NewMockMailer(logger)
	google := &fakeGoogle{}
	svc := NewService(repo, NewMemoryLimiter(3, time.Minute), NewMemoryResetStore(), mailer, google, cfg, logger)
	return testDeps{svc: svc, repo: repo, mailer: mailer, google: google}
}

func signup(t *testing.T, svc Service, email string) *AuthResponse {
	resp, err := svc.Signup(context.Background(), &SignupRequest{
		Email:       email,
		Password:    "dugun-2024",
		DisplayName: "Misafir",
	})
	require.NoError(t, err)
	return resp
}

func TestSignupAndSignin(t *testing.T) {
	d := newTestService(t, nil)
	created := signup(t, d.svc, " Misafir@Example.com ")

	assert.Equal(t, "misafir@example.com", created.User.Email)
	assert.Equal(t, utils.RoleUser, created.User.Role)

	resp, err := d.svc.Signin(context.Background(), &SigninRequest{Email: "misafir@example.com", Password: "dugun-2024"})
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, resp.User.ID)
	assert.Equal(t, "Bearer", resp.TokenType)

	claims, err := d.svc.ValidateToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, claims.UserID)
	assert.Equal(t, utils.TokenTypeAccess, claims.Type)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	d := newTestService(t, nil)
	signup(t, d.svc, "misafir@example.com")

	_, err := d.svc.Signup(context.Background(), &SignupRequest{Email: "MISAFIR@example.com", Password: "x12345678", DisplayName: "Öteki"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestSignin_AdminRoleComesFromServerList(t *testing.T) {
	d := newTestService(t, nil)
	signup(t, d.svc, "gelin@example.com")

	resp, err := d.svc.Signin(context.Background(), &SigninRequest{Email: "gelin@example.com", Password: "dugun-2024"})
	require.NoError(t, err)

	claims, err := d.svc.ValidateToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func TestSignin_RateLimited(t *testing.T) {
	d := newTestService(t, nil)
	signup(t, d.svc, "misafir@example.com")

	for i := 0; i < 3; i++ {
		_, err := d.svc.Signin(context.Background(), &SigninRequest{Email: "misafir@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := d.svc.Signin(context.Background(), &SigninRequest{Email: "misafir@example.com", Password: "dugun-2024"})
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, "Çok fazla başarısız deneme. Lütfen daha sonra tekrar deneyin.", Message(err))
}

func TestSignin_UnknownUserIsInvalidCredentials(t *testing.T) {
	d := newTestService(t, nil)
	_, err := d.svc.Signin(context.Background(), &SigninRequest{Email: "kimse@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignin_DomainNotAllowed(t *testing.T) {
	d := newTestService(t, func(c *Config) { c.AllowedDomain = "aile.com" })

	_, err := d.svc.Signin(context.Background(), &SigninRequest{Email: "misafir@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrDomainNotAllowed)
}

func TestGoogleAuth_CreatesThenReusesAccount(t *testing.T) {
	d := newTestService(t, nil)
	d.google.identity = &GoogleIdentity{Subject: "g-1", Email: "damat@example.com", EmailVerified: true}

	first, err := d.svc.GoogleAuth(context.Background(), &GoogleAuthRequest{IDToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, first.User.Provider)
	assert.Equal(t, "damat", first.User.DisplayName)

	second, err := d.svc.GoogleAuth(context.Background(), &GoogleAuthRequest{IDToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	_, err = d.svc.Signin(context.Background(), &SigninRequest{Email: "damat@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrSocialAccount)
}

func TestGoogleAuth_LinksExistingPasswordAccount(t *testing.T) {
	d := newTestService(t, nil)
	created := signup(t, d.svc, "damat@example.com")
	d.google.identity = &GoogleIdentity{Subject: "g-1", Email: "damat@example.com"}

	resp, err := d.svc.GoogleAuth(context.Background(), &GoogleAuthRequest{IDToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, resp.User.ID)
	assert.Equal(t, ProviderGoogle, resp.User.Provider)
}

func TestGoogleAuth_VerifierError(t *testing.T) {
	d := newTestService(t, nil)
	d.google.err = errors.Join(ErrGoogleToken, errors.New("expired"))

	_, err := d.svc.GoogleAuth(context.Background(), &GoogleAuthRequest{IDToken: "tok"})
	assert.ErrorIs(t, err, ErrGoogleToken)
}

func TestRefreshToken(t *testing.T) {
	d := newTestService(t, nil)
	created := signup(t, d.svc, "misafir@example.com")

	resp, err := d.svc.RefreshToken(context.Background(), created.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, resp.User.ID)

	_, err = d.svc.RefreshToken(context.Background(), created.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordReset(t *testing.T) {
	d := newTestService(t, nil)
	signup(t, d.svc, "misafir@example.com")

	require.NoError(t, d.svc.InitiatePasswordReset(context.Background(), "misafir@example.com"))
	link := d.mailer.LastLink("misafir@example.com")
	require.True(t, strings.HasPrefix(link, "http://localhost:8080/reset-password?token="))

	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")

	require.NoError(t, d.svc.ResetPassword(context.Background(), token, "yeni-sifre-1"))
	_, err = d.svc.Signin(context.Background(), &SigninRequest{Email: "misafir@example.com", Password: "yeni-sifre-1"})
	assert.NoError(t, err)

	// tokens are single use
	assert.ErrorIs(t, d.svc.ResetPassword(context.Background(), token, "baska-sifre"), ErrInvalidResetToken)
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	d := newTestService(t, nil)
	assert.NoError(t, d.svc.InitiatePasswordReset(context.Background(), "kimse@example.com"))
	assert.Empty(t, d.mailer.LastLink("kimse@example.com"))
}

func TestMessage_Unknown(t *testing.T) {
	assert.Equal(t, "Giriş sırasında bir hata oluştu. Lütfen tekrar deneyin.", Message(errors.New("boom")))
}
