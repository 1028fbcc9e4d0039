package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-gateway/token"
)

func signedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test"))
	require.NoError(t, err)
	return signed
}

func TestDecodeExtractsIdentityClaims(t *testing.T) {
	rawToken := signedToken(t, jwtlib.MapClaims{
		"sub":              "subject-1",
		"email":            "a@b.com",
		"cognito:username": "alice",
		"exp":              time.Now().Add(time.Hour).Unix(),
	})

	claims, err := token.Decode(rawToken)
	require.NoError(t, err)
	require.Equal(t, "subject-1", claims.Subject)
	require.Equal(t, "a@b.com", claims.Email)
	require.Equal(t, "alice", claims.Username)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := token.Decode("not-a-jwt")
	require.Error(t, err)
}

func TestExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		rawToken string
		want     bool
	}{
		{
			name:     "future expiry is valid",
			rawToken: signedToken(t, jwtlib.MapClaims{"exp": now.Add(time.Hour).Unix()}),
			want:     false,
		},
		{
			name:     "past expiry is expired",
			rawToken: signedToken(t, jwtlib.MapClaims{"exp": now.Add(-time.Hour).Unix()}),
			want:     true,
		},
		{
			name:     "missing expiry is expired",
			rawToken: signedToken(t, jwtlib.MapClaims{"sub": "subject-1"}),
			want:     true,
		},
		{
			name:     "undecodable token is expired",
			rawToken: "garbage",
			want:     true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, token.Expired(tc.rawToken, now))
		})
	}
}
