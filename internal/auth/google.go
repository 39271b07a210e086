package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleVerifier checks a Google ID token
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type tokenInfoVerifier struct {
	audience string
	opts     []option.ClientOption
}

// NewGoogleVerifier uses the tokeninfo endpoint. When audience is set the
// token must have been issued for it.
func NewGoogleVerifier(audience string, opts ...option.ClientOption) GoogleVerifier {
	return &tokenInfoVerifier{audience: audience, opts: opts}
}

func (v *tokenInfoVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	opts := append([]option.ClientOption{option.WithoutAuthentication()}, v.opts...)
	svc, err := oauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth2 service: %w", err)
	}

	info, err := svc.Tokeninfo().IdToken(idToken).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGoogleToken, err)
	}
	if v.audience != "" && info.Audience != v.audience {
		return nil, fmt.Errorf("%w: audience mismatch", ErrGoogleToken)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("%w: token has no email", ErrGoogleToken)
	}

	return &GoogleIdentity{
		Subject:       info.UserId,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail,
	}, nil
}
