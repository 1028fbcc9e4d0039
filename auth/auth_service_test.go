package auth_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-gateway/auth"
	"github.com/jrsteele09/go-auth-gateway/idp/idpfakes"
)

const (
	testEmail    = "a@b.com"
	testUsername = "alice"
	testPassword = "Secr3t!"
)

// testFixture holds the service under test and its fake provider.
type testFixture struct {
	provider *idpfakes.FakeProvider
	service  *auth.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	provider := idpfakes.NewFakeProvider()
	service, err := auth.NewService(provider, zerolog.Nop())
	require.NoError(t, err)

	return &testFixture{provider: provider, service: service}
}

// signUpTestUser creates the pending (unconfirmed) test account.
func (f *testFixture) signUpTestUser(t *testing.T) {
	t.Helper()

	username, err := f.service.SignUp(context.Background(), auth.SignUpRequest{
		Email:    testEmail,
		Username: testUsername,
		Password: testPassword,
	})
	require.NoError(t, err)
	require.Equal(t, testUsername, username)
}

// confirmTestUser confirms the pending account with the default code.
func (f *testFixture) confirmTestUser(t *testing.T) {
	t.Helper()
	require.NoError(t, f.service.Confirm(context.Background(), testUsername, idpfakes.DefaultConfirmationCode))
}

func TestNewServiceRequiresProvider(t *testing.T) {
	_, err := auth.NewService(nil, zerolog.Nop())
	require.Error(t, err)
}

func TestLoginBeforeConfirmationYieldsUserNotConfirmed(t *testing.T) {
	f := setupTestFixture(t)
	f.signUpTestUser(t)

	_, err := f.service.Login(context.Background(), auth.Credentials{Username: testUsername, Password: testPassword})
	require.Error(t, err)

	authErr, ok := auth.AsError(err)
	require.True(t, ok)
	require.Equal(t, auth.ErrorCodeUserNotConfirmed, authErr.Code)
}

func TestLoginWithWrongPasswordYieldsIncorrectCredentials(t *testing.T) {
	f := setupTestFixture(t)
	f.signUpTestUser(t)
	f.confirmTestUser(t)

	session, err := f.service.Login(context.Background(), auth.Credentials{Username: testUsername, Password: "wrong"})
	require.Error(t, err)
	require.Nil(t, session)

	authErr, ok := auth.AsError(err)
	require.True(t, ok)
	require.Equal(t, auth.ErrorCodeIncorrectCredentials, authErr.Code)
}

func TestLoginWithUnknownUserYieldsIncorrectCredentials(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login(context.Background(), auth.Credentials{Username: "nobody", Password: testPassword})
	require.Error(t, err)

	authErr, ok := auth.AsError(err)
	require.True(t, ok)
	require.Equal(t, auth.ErrorCodeIncorrectCredentials, authErr.Code)
}

func TestSignUpConfirmLoginScenario(t *testing.T) {
	f := setupTestFixture(t)
	f.signUpTestUser(t)

	require.NoError(t, f.service.Confirm(context.Background(), testUsername, "123456"))

	session, err := f.service.Login(context.Background(), auth.Credentials{Username: testUsername, Password: testPassword})
	require.NoError(t, err)
	require.Equal(t, testEmail, session.Claims.Email)
	require.Equal(t, testUsername, session.Claims.Username)
	require.NotEmpty(t, session.IDToken)
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)
}

func TestConfirmWithMismatchedCode(t *testing.T) {
	f := setupTestFixture(t)
	f.signUpTestUser(t)

	err := f.service.Confirm(context.Background(), testUsername, "654321")
	require.Error(t, err)

	authErr, ok := auth.AsError(err)
	require.True(t, ok)
	require.Equal(t, auth.ErrorCodeCodeMismatch, authErr.Code)
}

func TestConfirmWithExpiredCode(t *testing.T) {
	f := setupTestFixture(t)
	f.signUpTestUser(t)
	f.provider.ExpireConfirmationCode(testUsername)

	err := f.service.Confirm(context.Background(), testUsername, idpfakes.DefaultConfirmationCode)
	require.Error(t, err)

	authErr, ok := auth.AsError(err)
	require.True(t, ok)
	require.Equal(t, auth.ErrorCodeCodeExpired, authErr.Code)
}

func TestSignUpDuplicateUsernameIsUnhandled(t *testing.T) {
	f := setupTestFixture(t)
	f.signUpTestUser(t)

	_, err := f.service.SignUp(context.Background(), auth.SignUpRequest{
		Email:    "other@b.com",
		Username: testUsername,
		Password: testPassword,
	})
	require.Error(t, err)

	// Unrecognized provider codes surface as unhandled but keep the
	// provider's message text.
	authErr, ok := auth.AsError(err)
	require.True(t, ok)
	require.Equal(t, auth.ErrorCodeUnhandled, authErr.Code)
	require.NotEmpty(t, authErr.Message)
}

func TestRefreshReturnsNewSession(t *testing.T) {
	f := setupTestFixture(t)
	f.signUpTestUser(t)
	f.confirmTestUser(t)

	session, err := f.service.Login(context.Background(), auth.Credentials{Username: testUsername, Password: testPassword})
	require.NoError(t, err)

	refreshed, err := f.service.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, testEmail, refreshed.Claims.Email)
	require.NotEmpty(t, refreshed.IDToken)
	require.NotEmpty(t, refreshed.RefreshToken)
}

func TestRefreshWithInvalidTokenFailsHard(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Refresh(context.Background(), "revoked-or-bogus")
	require.Error(t, err)

	// Refresh failures are fatal-to-session, not part of the recoverable
	// taxonomy.
	_, ok := auth.AsError(err)
	require.False(t, ok)
}

func TestNewPasswordChallengeIsSurfacedNotAutoCompleted(t *testing.T) {
	f := setupTestFixture(t)
	f.signUpTestUser(t)
	f.confirmTestUser(t)
	f.provider.RequireNewPassword(testUsername)

	_, err := f.service.Login(context.Background(), auth.Credentials{Username: testUsername, Password: testPassword})
	require.Error(t, err)

	authErr, ok := auth.AsError(err)
	require.True(t, ok)
	require.Equal(t, auth.ErrorCodeNewPasswordRequired, authErr.Code)
	require.NotEmpty(t, authErr.ChallengeSession)

	session, err := f.service.CompleteNewPassword(context.Background(), testUsername, "N3wSecr3t!", authErr.ChallengeSession)
	require.NoError(t, err)
	require.Equal(t, testUsername, session.Claims.Username)

	// The replaced password is the one that works from now on.
	_, err = f.service.Login(context.Background(), auth.Credentials{Username: testUsername, Password: testPassword})
	require.Error(t, err)

	session, err = f.service.Login(context.Background(), auth.Credentials{Username: testUsername, Password: "N3wSecr3t!"})
	require.NoError(t, err)
	require.Equal(t, testEmail, session.Claims.Email)
}
