package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("POST "+RouteAuthSignUp, ChainMiddleware(s.SignUpHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthConfirm, ChainMiddleware(s.ConfirmHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthNewPassword, ChainMiddleware(s.NewPasswordHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteUserMe, ChainMiddleware(s.MeHandler(), append(s.APIMiddleware(), s.RequireAuth)...))

	// Bearer claims are optional on GraphQL: signUp, login and refresh run
	// anonymously while the me resolver reports Unauthorized itself.
	s.RegisterRouteFunc("POST "+RouteGraphQL, ChainMiddleware(s.GraphQLHandler(), append(s.APIMiddleware(), s.WithBearerClaims)...))
}
