package token

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Verifier validates bearer tokens against the identity provider's published
// signing keys. The keys are fetched from the issuer's JWKS endpoint and
// cached by go-oidc's remote key set, which only refetches when it sees an
// unknown key id.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the issuer's OIDC configuration and returns a
// verifier bound to the given client id. The authority must be reachable at
// startup for discovery to succeed.
func NewVerifier(ctx context.Context, authority, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, authority)
	if err != nil {
		return nil, fmt.Errorf("[token.NewVerifier] discover %q: %w", authority, err)
	}
	return &Verifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify checks signature, expiry, issuer and audience of rawToken and
// returns its identity claims.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("[token.Verify] %w", err)
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("[token.Verify] decode claims: %w", err)
	}
	return &claims, nil
}
