package auth

import "errors"

// ErrorCode is the closed classification of identity-provider failures
// surfaced to API callers. Every provider failure maps onto exactly one of
// these before it leaves the service.
type ErrorCode string

const (
	ErrorCodeIncorrectCredentials ErrorCode = "incorrect_credentials"
	ErrorCodeUserNotConfirmed     ErrorCode = "user_not_confirmed"
	ErrorCodeNewPasswordRequired  ErrorCode = "new_password_required"
	ErrorCodeCodeExpired          ErrorCode = "code_expired"
	ErrorCodeCodeMismatch         ErrorCode = "code_mismatch"
	ErrorCodeUnhandled            ErrorCode = "unhandled"
)

// Error is a classified, caller-recoverable authentication failure carrying
// the provider's message text. ChallengeSession is set only for
// new_password_required so the caller can finish the challenge through the
// dedicated completion endpoint.
type Error struct {
	Code             ErrorCode
	Message          string
	ChallengeSession string
}

func (e *Error) Error() string { return e.Message }

// AsError unwraps err into the auth error taxonomy.
func AsError(err error) (*Error, bool) {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
