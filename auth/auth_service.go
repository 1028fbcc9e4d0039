package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-gateway/idp"
)

// Credentials is a transient username/password pair, used once per
// authentication attempt and never persisted or logged.
type Credentials struct {
	Username string
	Password string
}

// SignUpRequest is the transient input to provider signup.
type SignUpRequest struct {
	Email    string
	Username string
	Password string
}

// Service orchestrates signup, login, confirmation and session refresh
// against the identity provider. One call in, one typed result out; it holds
// no state between calls.
type Service struct {
	provider idp.Provider
	logger   zerolog.Logger
}

// NewService validates dependencies and builds the service.
func NewService(provider idp.Provider, logger zerolog.Logger) (*Service, error) {
	if provider == nil {
		return nil, errors.New("[NewService] identity provider is required")
	}
	return &Service{provider: provider, logger: logger}, nil
}

// loginCodes and confirmCodes map provider error codes onto the taxonomy for
// the operation that produced them.
var loginCodes = map[string]ErrorCode{
	idp.CodeNotAuthorized:    ErrorCodeIncorrectCredentials,
	idp.CodeUserNotConfirmed: ErrorCodeUserNotConfirmed,
}

var confirmCodes = map[string]ErrorCode{
	idp.CodeExpiredCode:  ErrorCodeCodeExpired,
	idp.CodeCodeMismatch: ErrorCodeCodeMismatch,
}

// SignUp creates a pending account at the provider and returns the created
// username. The account stays unconfirmed until Confirm succeeds.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (string, error) {
	username, err := s.provider.SignUp(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		return "", s.classify(err, nil)
	}
	return username, nil
}

// Login authenticates the credentials against the provider. A new-password
// challenge is surfaced as ErrorCodeNewPasswordRequired carrying the
// challenge continuation; it is never auto-completed here. Use
// CompleteNewPassword to finish it.
func (s *Service) Login(ctx context.Context, creds Credentials) (*idp.Session, error) {
	result, err := s.provider.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		return nil, s.classify(err, loginCodes)
	}
	if result.Challenge != nil {
		return nil, &Error{
			Code:             ErrorCodeNewPasswordRequired,
			Message:          "New password required.",
			ChallengeSession: result.Challenge.Session,
		}
	}
	if result.Session == nil {
		return nil, &Error{Code: ErrorCodeUnhandled, Message: "identity provider returned neither session nor challenge"}
	}
	return result.Session, nil
}

// Confirm moves a pending account to confirmed using the emailed/SMSed code.
func (s *Service) Confirm(ctx context.Context, username, code string) error {
	if err := s.provider.ConfirmRegistration(ctx, username, code); err != nil {
		return s.classify(err, confirmCodes)
	}
	return nil
}

// Refresh exchanges a refresh token for a new session. Failures propagate
// unclassified: the session is unrecoverable and the caller must force a
// fresh login.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*idp.Session, error) {
	session, err := s.provider.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return session, nil
}

// CompleteNewPassword finishes a new-password challenge surfaced by Login.
func (s *Service) CompleteNewPassword(ctx context.Context, username, newPassword, challengeSession string) (*idp.Session, error) {
	session, err := s.provider.CompleteNewPasswordChallenge(ctx, username, newPassword, challengeSession)
	if err != nil {
		return nil, s.classify(err, loginCodes)
	}
	return session, nil
}

// classify converts a provider failure into the closed taxonomy. Codes
// without a mapping are logged server-side, then returned as unhandled while
// keeping the provider's raw message for the caller.
func (s *Service) classify(err error, codes map[string]ErrorCode) error {
	provErr, ok := idp.AsProviderError(err)
	if !ok {
		s.logger.Error().Err(err).Msg("identity provider call failed without a provider error")
		return &Error{Code: ErrorCodeUnhandled, Message: err.Error()}
	}
	if code, mapped := codes[provErr.Code]; mapped {
		return &Error{Code: code, Message: provErr.Message}
	}
	s.logger.Warn().
		Str("provider_code", provErr.Code).
		Str("provider_message", provErr.Message).
		Msg("unhandled identity provider error")
	return &Error{Code: ErrorCodeUnhandled, Message: provErr.Message}
}
