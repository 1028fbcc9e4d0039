package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth routes
	RouteAuthSignUp      = "/auth/signup"
	RouteAuthLogin       = "/auth/login"
	RouteAuthConfirm     = "/auth/confirm"
	RouteAuthNewPassword = "/auth/new-password"

	// User routes
	RouteUserMe = "/user/me"

	// GraphQL endpoint
	RouteGraphQL = "/graphql"
)
