package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT(&JWTClaims{UserID: "u1", Role: RoleAdmin, Type: TokenTypeAccess}, "secret", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1", claims.Subject)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, TokenTypeAccess, claims.Type)
}

func TestValidateJWT_Rejects(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateJWT(&JWTClaims{UserID: "u1", Type: TokenTypeAccess}, "secret", time.Minute)
		require.NoError(t, err)
		_, err = ValidateJWT(token, "other")
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := GenerateJWT(&JWTClaims{UserID: "u1", Type: TokenTypeAccess}, "secret", -time.Minute)
		require.NoError(t, err)
		_, err = ValidateJWT(token, "secret")
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateJWT("not-a-token", "secret")
		assert.Error(t, err)
	})
}
