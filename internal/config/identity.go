package config

import "fmt"

const (
	awsRegionVar  = "AWS_REGION"
	userPoolIDVar = "COGNITO_USER_POOL_ID"
	clientIDVar   = "COGNITO_CLIENT_ID"
	authorityVar  = "COGNITO_AUTHORITY"
)

type Identity struct{}

var _ IdentityConfig = Identity{}

func (Identity) GetAWSRegion() string {
	return GetEnv(awsRegionVar, "us-east-1")
}

func (Identity) GetUserPoolID() string {
	return GetEnv(userPoolIDVar, "")
}

func (Identity) GetClientID() string {
	return GetEnv(clientIDVar, "")
}

// GetAuthority returns the OIDC issuer URL of the user pool. Tokens are
// verified against the keys this issuer publishes.
func (i Identity) GetAuthority() string {
	if authority := GetEnv(authorityVar, ""); authority != "" {
		return authority
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", i.GetAWSRegion(), i.GetUserPoolID())
}
