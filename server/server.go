package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/auth"
	"github.com/jrsteele09/go-auth-gateway/internal/config"
	"github.com/jrsteele09/go-auth-gateway/token"
)

// Verifier checks a bearer token against the identity provider's published
// signing keys and returns its identity claims.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*token.Claims, error)
}

// Server exposes the auth service over REST and GraphQL.
type Server struct {
	env       string
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	auth      *auth.Service
	verifier  Verifier
	validator *auth.Validator
	schema    *graphql.Schema
}

// New creates a Server with all routes and the GraphQL schema initialised.
func New(cfg config.Config, authService *auth.Service, verifier Verifier) (*Server, error) {
	if authService == nil {
		return nil, errors.New("[Server New] auth service is required")
	}
	if verifier == nil {
		return nil, errors.New("[Server New] token verifier is required")
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		auth:      authService,
		verifier:  verifier,
		validator: auth.NewValidator(),
	}

	schema, err := graphql.ParseSchema(SchemaDefinition, &RootResolver{server: s})
	if err != nil {
		return nil, fmt.Errorf("[Server New] parse graphql schema: %w", err)
	}
	s.schema = schema

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// RegisterRouteFunc adds a route to the http mux, the pattern should include the
// method, for example: "POST /auth/login".
func (s *Server) RegisterRouteFunc(pattern string, handlerFunc func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handlerFunc)
}

// RegisterRouteHandler adds a http.Handler based route to the http mux.
func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	for _, route := range s.routes {
		s.logRoute(route)
	}
}

func (s *Server) logRoute(route string) {
	method, path, found := strings.Cut(route, " ")
	if !found {
		path, method = route, ""
	}
	displayMethod := method
	if colour, ok := methodColors[method]; ok && s.env == "DEV" {
		displayMethod = colour + fmt.Sprintf("%-7s", method) + ResetColor
	}
	log.Debug().Msgf("route [%s] %s", displayMethod, path)
}
