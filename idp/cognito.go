package idp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"github.com/jrsteele09/go-auth-gateway/token"
)

// cognitoAPI is the slice of the Cognito user-pool API the adapter consumes.
type cognitoAPI interface {
	SignUp(ctx context.Context, params *cognito.SignUpInput, optFns ...func(*cognito.Options)) (*cognito.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognito.ConfirmSignUpInput, optFns ...func(*cognito.Options)) (*cognito.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cognito.InitiateAuthInput, optFns ...func(*cognito.Options)) (*cognito.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, params *cognito.RespondToAuthChallengeInput, optFns ...func(*cognito.Options)) (*cognito.RespondToAuthChallengeOutput, error)
}

// CognitoClient adapts the AWS Cognito user-pool API to the Provider
// contract. It is stateless and safe for concurrent use.
type CognitoClient struct {
	api      cognitoAPI
	clientID string
}

var _ Provider = (*CognitoClient)(nil)

// NewCognitoClient builds a client for the app client identified by clientID.
func NewCognitoClient(cfg aws.Config, clientID string) *CognitoClient {
	return &CognitoClient{
		api:      cognito.NewFromConfig(cfg),
		clientID: clientID,
	}
}

func (c *CognitoClient) Authenticate(ctx context.Context, username, password string) (AuthResult, error) {
	out, err := c.api.InitiateAuth(ctx, &cognito.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return AuthResult{}, providerError(err)
	}

	if out.ChallengeName == types.ChallengeNameTypeNewPasswordRequired {
		return AuthResult{Challenge: &Challenge{
			Name:    string(out.ChallengeName),
			Session: aws.ToString(out.Session),
		}}, nil
	}

	session, err := sessionFromResult(out.AuthenticationResult, "")
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Session: session}, nil
}

func (c *CognitoClient) SignUp(ctx context.Context, email, username, password string) (string, error) {
	_, err := c.api.SignUp(ctx, &cognito.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(username),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	})
	if err != nil {
		return "", providerError(err)
	}
	return username, nil
}

func (c *CognitoClient) ConfirmRegistration(ctx context.Context, username, code string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cognito.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		return providerError(err)
	}
	return nil
}

// RefreshSession exchanges a refresh token for fresh access/ID tokens. The
// provider accepts refresh by token alone; no username is sent.
func (c *CognitoClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	out, err := c.api.InitiateAuth(ctx, &cognito.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		return nil, providerError(err)
	}
	return sessionFromResult(out.AuthenticationResult, refreshToken)
}

// CompleteNewPasswordChallenge answers a NEW_PASSWORD_REQUIRED challenge.
// Server-managed attributes (email_verified, phone_number_verified) are never
// submitted; the provider rejects client writes to them.
func (c *CognitoClient) CompleteNewPasswordChallenge(ctx context.Context, username, newPassword, challengeSession string) (*Session, error) {
	out, err := c.api.RespondToAuthChallenge(ctx, &cognito.RespondToAuthChallengeInput{
		ChallengeName: types.ChallengeNameTypeNewPasswordRequired,
		ClientId:      aws.String(c.clientID),
		Session:       aws.String(challengeSession),
		ChallengeResponses: map[string]string{
			"USERNAME":     username,
			"NEW_PASSWORD": newPassword,
		},
	})
	if err != nil {
		return nil, providerError(err)
	}
	return sessionFromResult(out.AuthenticationResult, "")
}

// sessionFromResult converts the SDK auth result into a Session. Cognito does
// not always rotate refresh tokens; when the result carries none, the
// caller's token stays valid and is kept.
func sessionFromResult(result *types.AuthenticationResultType, fallbackRefreshToken string) (*Session, error) {
	if result == nil {
		return nil, &ProviderError{Message: "identity provider returned no session"}
	}

	refreshToken := aws.ToString(result.RefreshToken)
	if refreshToken == "" {
		refreshToken = fallbackRefreshToken
	}

	session := &Session{
		IDToken:      aws.ToString(result.IdToken),
		AccessToken:  aws.ToString(result.AccessToken),
		RefreshToken: refreshToken,
		ExpiresIn:    time.Duration(result.ExpiresIn) * time.Second,
	}

	claims, err := token.Decode(session.IDToken)
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("malformed id token in provider session: %v", err)}
	}
	session.Claims = *claims

	return session, nil
}

// providerError recovers any SDK failure into a ProviderError value so that
// no raw error crosses the adapter boundary.
func providerError(err error) *ProviderError {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Code: apiErr.ErrorCode(), Message: apiErr.ErrorMessage()}
	}
	return &ProviderError{Message: err.Error()}
}
