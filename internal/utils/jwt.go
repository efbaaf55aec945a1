package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the parts of a bearer token worth logging.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token has an expiry before now.
func (c TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ParseTokenClaims reads subject and expiry from a JWT without verifying its
// signature. The remote endpoint verifies; the engine only reports.
func ParseTokenClaims(tokenString string) (TokenClaims, error) {
	if tokenString == "" {
		return TokenClaims{}, errors.New("empty token")
	}

	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return TokenClaims{}, fmt.Errorf("error occurred parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, errors.New("invalid token claims")
	}

	var out TokenClaims
	if out.Subject, err = claims.GetSubject(); err != nil {
		return TokenClaims{}, fmt.Errorf("error occurred during getting subject from token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return TokenClaims{}, fmt.Errorf("error occurred during getting expiry from token: %w", err)
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
	}

	return out, nil
}
