package server

import (
	"context"
	"encoding/json"
	"net/http"
)

// SchemaDefinition is the GraphQL schema served on /graphql. Field names are
// camelCase as GraphQL convention dictates; the REST surface keeps
// snake_case JSON.
const SchemaDefinition = `
	schema {
		query: Query
		mutation: Mutation
	}

	type Query {
		"""
		Identity claims of the bearer token on this request.
		"""
		me: UserInfo!
	}

	type Mutation {
		signUp(input: SignUpInput!): SignUpPayload!
		login(input: LoginInput!): AuthPayload!
		confirm(input: ConfirmInput!): ConfirmPayload!
		refresh: AuthPayload!
		completeNewPassword(input: CompleteNewPasswordInput!): AuthPayload!
	}

	type UserInfo {
		id: ID!
		email: String!
		username: String!
	}

	input SignUpInput {
		email: String!
		username: String!
		password: String!
	}

	type SignUpPayload {
		username: String!
	}

	input LoginInput {
		username: String!
		password: String!
	}

	input ConfirmInput {
		username: String!
		code: String!
	}

	type ConfirmPayload {
		confirmed: Boolean!
	}

	input CompleteNewPasswordInput {
		username: String!
		newPassword: String!
		challengeSession: String!
	}

	type AuthPayload {
		email: String!
		username: String!
		accessToken: String!
		refreshToken: String!
	}
`

const (
	contextKeyResponseWriter ContextKey = "response_writer"
	contextKeyRequest        ContextKey = "http_request"
)

// withHTTPContext makes the raw request and response writer reachable from
// resolvers: login and refresh need them for the refresh token cookie.
func withHTTPContext(ctx context.Context, w http.ResponseWriter, r *http.Request) context.Context {
	ctx = context.WithValue(ctx, contextKeyResponseWriter, w)
	return context.WithValue(ctx, contextKeyRequest, r)
}

func responseWriterFromContext(ctx context.Context) (http.ResponseWriter, bool) {
	w, ok := ctx.Value(contextKeyResponseWriter).(http.ResponseWriter)
	return w, ok
}

func requestFromContext(ctx context.Context) (*http.Request, bool) {
	r, ok := ctx.Value(contextKeyRequest).(*http.Request)
	return r, ok
}

// GraphQLHandler executes GraphQL operations posted as JSON.
func (s *Server) GraphQLHandler() http.HandlerFunc {
	type graphqlRequest struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid graphql request body")
			return
		}

		ctx := withHTTPContext(r.Context(), w, r)
		response := s.schema.Exec(ctx, req.Query, req.OperationName, req.Variables)

		body, err := json.Marshal(response)
		if err != nil {
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}
