package token

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims are the identity claims carried by the provider's ID tokens.
// Cognito stores the username under a provider-specific claim name.
type Claims struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Username string `json:"cognito:username"`
}

// idTokenClaims adapts Claims for golang-jwt parsing.
type idTokenClaims struct {
	jwtlib.RegisteredClaims
	Email    string `json:"email"`
	Username string `json:"cognito:username"`
}

// Decode extracts identity claims from a JWT without verifying its signature.
// Only use it on tokens received directly from the identity provider over TLS
// or already checked by a Verifier.
func Decode(rawToken string) (*Claims, error) {
	var claims idTokenClaims
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, &claims); err != nil {
		return nil, fmt.Errorf("[token.Decode] parse token: %w", err)
	}
	return &Claims{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Username: claims.Username,
	}, nil
}

// Expired reports whether the token's exp claim is at or before now. Tokens
// that cannot be decoded or carry no expiry are treated as expired, which
// forces callers onto their refresh path.
func Expired(rawToken string, now time.Time) bool {
	var claims idTokenClaims
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !claims.ExpiresAt.After(now)
}
