package auth

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// Validator provides request validation for the auth endpoints, run before
// any call reaches the identity provider. The provider enforces its own
// password policy; these checks only reject requests that could never
// succeed.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateSignUp checks a signup request for structurally invalid input.
func (v *Validator) ValidateSignUp(req SignUpRequest) error {
	if err := v.ValidateEmail(req.Email); err != nil {
		return err
	}
	if err := v.ValidateUsername(req.Username); err != nil {
		return err
	}
	if strings.TrimSpace(req.Password) == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// ValidateCredentials checks a login request.
func (v *Validator) ValidateCredentials(creds Credentials) error {
	if err := v.ValidateUsername(creds.Username); err != nil {
		return err
	}
	if creds.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// ValidateEmail checks the address is RFC 5322 parseable.
func (v *Validator) ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address: %w", err)
	}
	return nil
}

// ValidateUsername rejects empty usernames and usernames with whitespace,
// which the provider would refuse anyway.
func (v *Validator) ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	for _, r := range username {
		if unicode.IsSpace(r) {
			return fmt.Errorf("username must not contain whitespace")
		}
	}
	return nil
}

// ValidateConfirmationCode checks the code is a non-empty string of digits.
func (v *Validator) ValidateConfirmationCode(code string) error {
	if code == "" {
		return fmt.Errorf("confirmation code is required")
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("confirmation code must be numeric")
		}
	}
	return nil
}
