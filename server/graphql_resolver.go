package server

import (
	"context"
	"errors"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/auth"
	"github.com/jrsteele09/go-auth-gateway/idp"
	"github.com/jrsteele09/go-auth-gateway/token"
)

// errUnauthorized is the exact message clients match on when deciding
// whether an error means "not signed in yet". Do not reword it.
var errUnauthorized = errors.New("Unauthorized")

// RootResolver resolves the top-level Query and Mutation fields.
type RootResolver struct {
	server *Server
}

type SignUpInput struct {
	Email    string
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type ConfirmInput struct {
	Username string
	Code     string
}

type CompleteNewPasswordInput struct {
	Username         string
	NewPassword      string
	ChallengeSession string
}

func (r *RootResolver) Me(ctx context.Context) (*UserInfoResolver, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, errUnauthorized
	}
	return &UserInfoResolver{claims: claims}, nil
}

func (r *RootResolver) SignUp(ctx context.Context, args struct{ Input SignUpInput }) (*SignUpPayloadResolver, error) {
	req := auth.SignUpRequest{
		Email:    args.Input.Email,
		Username: args.Input.Username,
		Password: args.Input.Password,
	}
	if err := r.server.validator.ValidateSignUp(req); err != nil {
		return nil, err
	}
	username, err := r.server.auth.SignUp(ctx, req)
	if err != nil {
		return nil, err
	}
	return &SignUpPayloadResolver{username: username}, nil
}

func (r *RootResolver) Login(ctx context.Context, args struct{ Input LoginInput }) (*AuthPayloadResolver, error) {
	creds := auth.Credentials{Username: args.Input.Username, Password: args.Input.Password}
	if err := r.server.validator.ValidateCredentials(creds); err != nil {
		return nil, err
	}
	session, err := r.server.auth.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	r.setRefreshCookie(ctx, session.RefreshToken)
	return &AuthPayloadResolver{session: session}, nil
}

func (r *RootResolver) Confirm(ctx context.Context, args struct{ Input ConfirmInput }) (*ConfirmPayloadResolver, error) {
	if err := r.server.validator.ValidateUsername(args.Input.Username); err != nil {
		return nil, err
	}
	if err := r.server.validator.ValidateConfirmationCode(args.Input.Code); err != nil {
		return nil, err
	}
	if err := r.server.auth.Confirm(ctx, args.Input.Username, args.Input.Code); err != nil {
		return nil, err
	}
	return &ConfirmPayloadResolver{}, nil
}

// Refresh exchanges the refresh token cookie for a fresh session. The token
// is read from the cookie only, never from the operation payload.
func (r *RootResolver) Refresh(ctx context.Context) (*AuthPayloadResolver, error) {
	req, ok := requestFromContext(ctx)
	if !ok {
		return nil, errors.New("no http request in context")
	}
	cookie, err := req.Cookie(RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		return nil, errors.New("missing refresh token cookie")
	}
	session, err := r.server.auth.Refresh(ctx, cookie.Value)
	if err != nil {
		return nil, err
	}
	r.setRefreshCookie(ctx, session.RefreshToken)
	return &AuthPayloadResolver{session: session}, nil
}

func (r *RootResolver) CompleteNewPassword(ctx context.Context, args struct{ Input CompleteNewPasswordInput }) (*AuthPayloadResolver, error) {
	in := args.Input
	if in.Username == "" || in.NewPassword == "" || in.ChallengeSession == "" {
		return nil, errors.New("username, newPassword and challengeSession are required")
	}
	session, err := r.server.auth.CompleteNewPassword(ctx, in.Username, in.NewPassword, in.ChallengeSession)
	if err != nil {
		return nil, err
	}
	r.setRefreshCookie(ctx, session.RefreshToken)
	return &AuthPayloadResolver{session: session}, nil
}

func (r *RootResolver) setRefreshCookie(ctx context.Context, refreshToken string) {
	w, okWriter := responseWriterFromContext(ctx)
	req, okRequest := requestFromContext(ctx)
	if !okWriter || !okRequest {
		log.Warn().Msg("graphql context missing http request or writer, refresh token cookie not set")
		return
	}
	SetRefreshTokenCookie(w, req, refreshToken)
}

// UserInfoResolver resolves the UserInfo type from verified bearer claims.
type UserInfoResolver struct {
	claims *token.Claims
}

// AuthPayloadResolver resolves the AuthPayload type. The accessToken field
// carries the identity provider's ID token: its audience is this app's
// client id and it holds the email and username claims.
type AuthPayloadResolver struct {
	session *idp.Session
}

func (r *AuthPayloadResolver) Email() string        { return r.session.Claims.Email }
func (r *AuthPayloadResolver) Username() string     { return r.session.Claims.Username }
func (r *AuthPayloadResolver) AccessToken() string  { return r.session.IDToken }
func (r *AuthPayloadResolver) RefreshToken() string { return r.session.RefreshToken }

type SignUpPayloadResolver struct {
	username string
}

func (r *SignUpPayloadResolver) Username() string { return r.username }

type ConfirmPayloadResolver struct{}

func (r *ConfirmPayloadResolver) Confirmed() bool { return true }

func (r *UserInfoResolver) ID() graphql.ID   { return graphql.ID(r.claims.Subject) }
func (r *UserInfoResolver) Email() string    { return r.claims.Email }
func (r *UserInfoResolver) Username() string { return r.claims.Username }
