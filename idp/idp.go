package idp

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/go-auth-gateway/token"
)

// Provider error codes the service layer knows how to classify. Codes outside
// this list fall through to the unhandled taxonomy entry.
const (
	CodeNotAuthorized    = "NotAuthorizedException"
	CodeUserNotConfirmed = "UserNotConfirmedException"
	CodeExpiredCode      = "ExpiredCodeException"
	CodeCodeMismatch     = "CodeMismatchException"
)

// ChallengeNewPasswordRequired is the challenge name the provider issues when
// an administrator-created account must replace its temporary password.
const ChallengeNewPasswordRequired = "NEW_PASSWORD_REQUIRED"

// Provider is the boundary to the external identity service. Implementations
// convert every provider failure into a *ProviderError value: callers never
// see raw transport or SDK errors.
type Provider interface {
	// Authenticate performs a username/password login. The outcome is
	// three-way: a session, a challenge, or an error.
	Authenticate(ctx context.Context, username, password string) (AuthResult, error)

	// SignUp creates a pending (unconfirmed) account with email attached as
	// the single user attribute and returns the created username.
	SignUp(ctx context.Context, email, username, password string) (string, error)

	// ConfirmRegistration moves a pending account to confirmed using the
	// code delivered over email/SMS.
	ConfirmRegistration(ctx context.Context, username, code string) error

	// RefreshSession mints a new session from a refresh token alone. Errors
	// are terminal for the call; the provider is not retried.
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)

	// CompleteNewPasswordChallenge finishes a new-password challenge using
	// the opaque continuation returned with the challenge.
	CompleteNewPasswordChallenge(ctx context.Context, username, newPassword, challengeSession string) (*Session, error)
}

// Session is the set of credentials the provider mints on a successful
// authentication or refresh. The refresh token is the only piece that
// outlives the request on the server side (as an HTTP-only cookie).
type Session struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	Claims       token.Claims
}

// Challenge is an intermediate authentication state: the provider withheld a
// session until an additional step completes.
type Challenge struct {
	Name    string
	Session string // opaque continuation, handed back on completion
}

// AuthResult is the tagged outcome of an authentication attempt. Exactly one
// of Session or Challenge is set when the accompanying error is nil.
type AuthResult struct {
	Session   *Session
	Challenge *Challenge
}

// ProviderError is a recovered identity-provider failure. Code carries the
// provider's own error code (e.g. "NotAuthorizedException") and may be empty
// for transport-level failures.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// AsProviderError unwraps err into a ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr, true
	}
	return nil, false
}
