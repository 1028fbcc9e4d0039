// Package idpfakes provides an in-memory identity provider for tests. It
// mimics the user-pool lifecycle (pending account, confirmation code, login,
// refresh, new-password challenge) and fails with the same provider error
// codes the real service returns.
package idpfakes

import (
	"context"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-auth-gateway/idp"
	"github.com/jrsteele09/go-auth-gateway/token"
)

// DefaultConfirmationCode is assigned to every pending account unless a test
// overrides it with SetConfirmationCode.
const DefaultConfirmationCode = "123456"

var fakeSigningSecret = []byte("idpfakes-signing-secret")

type account struct {
	email              string
	passwordHash       []byte
	subject            string
	confirmed          bool
	confirmationCode   string
	codeExpired        bool
	requireNewPassword bool
}

// FakeProvider is a threadsafe in-memory idp.Provider.
type FakeProvider struct {
	lock          sync.Mutex
	accounts      map[string]*account
	refreshTokens map[string]string // refresh token -> username
	challenges    map[string]string // challenge session -> username
	tokenTTL      time.Duration
	nowTime       func() time.Time
}

var _ idp.Provider = (*FakeProvider)(nil)

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]string),
		challenges:    make(map[string]string),
		tokenTTL:      time.Hour,
		nowTime:       time.Now,
	}
}

// WithNowTime overrides the clock used for token expiry claims.
func (f *FakeProvider) WithNowTime(nowFunc func() time.Time) *FakeProvider {
	f.nowTime = nowFunc
	return f
}

func (f *FakeProvider) SignUp(_ context.Context, email, username, password string) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if _, exists := f.accounts[username]; exists {
		return "", &idp.ProviderError{Code: "UsernameExistsException", Message: "User already exists"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", &idp.ProviderError{Message: err.Error()}
	}

	f.accounts[username] = &account{
		email:            email,
		passwordHash:     hash,
		subject:          uuid.New().String(),
		confirmationCode: DefaultConfirmationCode,
	}
	return username, nil
}

func (f *FakeProvider) ConfirmRegistration(_ context.Context, username, code string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	acct, exists := f.accounts[username]
	if !exists {
		return &idp.ProviderError{Code: "UserNotFoundException", Message: "Username/client id combination not found."}
	}
	if acct.codeExpired {
		return &idp.ProviderError{Code: idp.CodeExpiredCode, Message: "Invalid code provided, please request a code again."}
	}
	if acct.confirmationCode != code {
		return &idp.ProviderError{Code: idp.CodeCodeMismatch, Message: "Invalid verification code provided, please try again."}
	}

	acct.confirmed = true
	return nil
}

func (f *FakeProvider) Authenticate(_ context.Context, username, password string) (idp.AuthResult, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	acct, exists := f.accounts[username]
	if !exists {
		return idp.AuthResult{}, notAuthorizedErr()
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return idp.AuthResult{}, notAuthorizedErr()
	}
	if !acct.confirmed {
		return idp.AuthResult{}, &idp.ProviderError{Code: idp.CodeUserNotConfirmed, Message: "User is not confirmed."}
	}
	if acct.requireNewPassword {
		challengeSession := uuid.New().String()
		f.challenges[challengeSession] = username
		return idp.AuthResult{Challenge: &idp.Challenge{
			Name:    idp.ChallengeNewPasswordRequired,
			Session: challengeSession,
		}}, nil
	}

	return idp.AuthResult{Session: f.mintSession(username, acct, "")}, nil
}

func (f *FakeProvider) RefreshSession(_ context.Context, refreshToken string) (*idp.Session, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	username, exists := f.refreshTokens[refreshToken]
	if !exists {
		return nil, &idp.ProviderError{Code: idp.CodeNotAuthorized, Message: "Refresh Token has been revoked"}
	}
	// Refresh tokens are not rotated, matching the managed provider's
	// default behavior.
	return f.mintSession(username, f.accounts[username], refreshToken), nil
}

func (f *FakeProvider) CompleteNewPasswordChallenge(_ context.Context, username, newPassword, challengeSession string) (*idp.Session, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	challengeUser, exists := f.challenges[challengeSession]
	if !exists || challengeUser != username {
		return nil, notAuthorizedErr()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.MinCost)
	if err != nil {
		return nil, &idp.ProviderError{Message: err.Error()}
	}

	acct := f.accounts[username]
	acct.passwordHash = hash
	acct.requireNewPassword = false
	delete(f.challenges, challengeSession)

	return f.mintSession(username, acct, ""), nil
}

// SetConfirmationCode overrides the pending confirmation code for username.
func (f *FakeProvider) SetConfirmationCode(username, code string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if acct, exists := f.accounts[username]; exists {
		acct.confirmationCode = code
	}
}

// ExpireConfirmationCode makes the next confirmation attempt fail with an
// expired-code error.
func (f *FakeProvider) ExpireConfirmationCode(username string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if acct, exists := f.accounts[username]; exists {
		acct.codeExpired = true
	}
}

// RequireNewPassword flags the account so that the next login yields a
// new-password challenge instead of a session.
func (f *FakeProvider) RequireNewPassword(username string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if acct, exists := f.accounts[username]; exists {
		acct.requireNewPassword = true
	}
}

// RevokeRefreshToken invalidates a previously issued refresh token.
func (f *FakeProvider) RevokeRefreshToken(refreshToken string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.refreshTokens, refreshToken)
}

// mintSession issues a session with HS256-signed tokens. Callers must hold
// the lock. An empty refreshToken issues (and records) a fresh one.
func (f *FakeProvider) mintSession(username string, acct *account, refreshToken string) *idp.Session {
	if refreshToken == "" {
		refreshToken = uuid.New().String()
		f.refreshTokens[refreshToken] = username
	}

	now := f.nowTime()
	claims := jwtlib.MapClaims{
		"sub":              acct.subject,
		"email":            acct.email,
		"cognito:username": username,
		"iat":              now.Unix(),
		"exp":              now.Add(f.tokenTTL).Unix(),
	}

	idToken := mustSign(claims)
	accessToken := mustSign(jwtlib.MapClaims{
		"sub": acct.subject,
		"iat": now.Unix(),
		"exp": now.Add(f.tokenTTL).Unix(),
	})

	return &idp.Session{
		IDToken:      idToken,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    f.tokenTTL,
		Claims: token.Claims{
			Subject:  acct.subject,
			Email:    acct.email,
			Username: username,
		},
	}
}

func notAuthorizedErr() *idp.ProviderError {
	return &idp.ProviderError{Code: idp.CodeNotAuthorized, Message: "Incorrect username or password."}
}

func mustSign(claims jwtlib.MapClaims) string {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(fakeSigningSecret)
	if err != nil {
		panic("idpfakes: sign token: " + err.Error())
	}
	return signed
}
