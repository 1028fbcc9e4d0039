package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-gateway/token"
)

// ContextKey is the type used for values stored in a request context.
type ContextKey string

const (
	ContextKeyClaims    ContextKey = "claims"
	ContextKeyRequestID ContextKey = "request_id"
)

// ClaimsFromContext returns the verified bearer claims for the request, if
// any were attached.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok
}

func (s *Server) bearerClaims(r *http.Request) (*token.Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errors.New("missing Authorization header")
	}
	scheme, rawToken, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return nil, errors.New("invalid Authorization header format")
	}
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, errors.New("empty bearer token")
	}
	return s.verifier.Verify(r.Context(), rawToken)
}

// WithBearerClaims verifies the bearer token when one is present and attaches
// its claims to the request context. Requests without a valid token pass
// through untouched: the handler decides what a missing identity means.
func (s *Server) WithBearerClaims(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if claims, err := s.bearerClaims(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), ContextKeyClaims, claims))
		}
		next(w, r)
	}
}

// RequireAuth rejects requests that do not carry a valid bearer token.
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.bearerClaims(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or missing bearer token"}`))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyClaims, claims)))
	}
}
