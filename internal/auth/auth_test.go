package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	k, err := NewKeys("test-secret")
	require.NoError(t, err)

	token, err := k.GenerateToken("user-123", RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := k.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.WithinDuration(t, time.Now().Add(SessionTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	k1, _ := NewKeys("secret-one")
	k2, _ := NewKeys("secret-two")

	token, err := k1.GenerateToken("user-123", RoleUser)
	require.NoError(t, err)

	_, err = k2.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	k, _ := NewKeys("test-secret")

	claims := Claims{
		Role: RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = k.ValidateToken(expired)
	assert.Error(t, err)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	k, _ := NewKeys("test-secret")
	token, err := k.GenerateToken("user-123", RoleUser)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = k.ValidateToken(tampered)
	assert.Error(t, err)
}

func TestNewKeysRequiresSecret(t *testing.T) {
	_, err := NewKeys("")
	assert.Error(t, err)
}
