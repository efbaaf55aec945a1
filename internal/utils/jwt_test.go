package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestParseTokenClaims_Success(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, jwt.RegisteredClaims{
		Subject:   "device-7",
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	claims, err := ParseTokenClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "device-7", claims.Subject)
	assert.True(t, exp.Equal(claims.ExpiresAt))
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(exp.Add(time.Second)))
}

func TestParseTokenClaims_NoExpiry(t *testing.T) {
	claims, err := ParseTokenClaims(signedToken(t, jwt.RegisteredClaims{Subject: "x"}))
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.IsZero())
	assert.False(t, claims.Expired(time.Now()))
}

func TestParseTokenClaims_Invalid(t *testing.T) {
	_, err := ParseTokenClaims("")
	assert.Error(t, err)

	_, err = ParseTokenClaims("not-a-jwt")
	assert.Error(t, err)
}
