package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync/atomic"
	"time"
)

// Client talks to the auth gateway's GraphQL endpoint through the link
// chain: unauthorized suppression, bearer header, token refresh, transport.
type Client struct {
	store *SessionStore
	chain Link
}

type options struct {
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*options)

// WithHTTPClient replaces the default cookie-jar client. The supplied
// client must carry cookies or the refresh flow will not work.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) { o.httpClient = httpClient }
}

// WithNow overrides the clock used for token expiry checks.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New(endpoint string, store *SessionStore, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("[client New] session store is required")
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("[client New] cookie jar: %w", err)
		}
		httpClient = &http.Client{Jar: jar}
	}

	transport := NewHTTPTransport(endpoint, httpClient)
	attached := &atomic.Bool{}
	refreshLink := NewRefreshLink(store, transport, attached, transport)
	refreshLink.now = o.now
	chain := NewSuppressUnauthorizedLink(attached,
		NewAuthHeaderLink(store, attached, refreshLink))

	return &Client{store: store, chain: chain}, nil
}

// Do sends an operation through the full link chain.
func (c *Client) Do(ctx context.Context, op *Operation) (*Response, error) {
	return c.chain.Do(ctx, op)
}

// Store exposes the session store, for session restore and state queries.
func (c *Client) Store() *SessionStore {
	return c.store
}

// AuthPayload mirrors the GraphQL AuthPayload type.
type AuthPayload struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserInfo mirrors the GraphQL UserInfo type.
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

const (
	loginMutation   = `mutation Login($input: LoginInput!) { login(input: $input) { email username accessToken refreshToken } }`
	signUpMutation  = `mutation SignUp($input: SignUpInput!) { signUp(input: $input) { username } }`
	confirmMutation = `mutation Confirm($input: ConfirmInput!) { confirm(input: $input) { confirmed } }`
	meQuery         = `query Me { me { id email username } }`
)

// Login authenticates and records the session in the store.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthPayload, error) {
	resp, err := c.Do(ctx, &Operation{
		Query:         loginMutation,
		OperationName: "Login",
		Variables: map[string]any{
			"input": map[string]any{"username": username, "password": password},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, resp.Errors[0]
	}
	var payload struct {
		Login AuthPayload `json:"login"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return nil, fmt.Errorf("[Client.Login] decode payload: %w", err)
	}
	c.store.SignIn(payload.Login.Email, payload.Login.AccessToken)
	return &payload.Login, nil
}

// SignUp registers a new account and returns the provider's username.
func (c *Client) SignUp(ctx context.Context, email, username, password string) (string, error) {
	resp, err := c.Do(ctx, &Operation{
		Query:         signUpMutation,
		OperationName: "SignUp",
		Variables: map[string]any{
			"input": map[string]any{"email": email, "username": username, "password": password},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Errors) > 0 {
		return "", resp.Errors[0]
	}
	var payload struct {
		SignUp struct {
			Username string `json:"username"`
		} `json:"signUp"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return "", fmt.Errorf("[Client.SignUp] decode payload: %w", err)
	}
	return payload.SignUp.Username, nil
}

// Confirm completes registration with the emailed confirmation code.
func (c *Client) Confirm(ctx context.Context, username, code string) error {
	resp, err := c.Do(ctx, &Operation{
		Query:         confirmMutation,
		OperationName: "Confirm",
		Variables: map[string]any{
			"input": map[string]any{"username": username, "code": code},
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		return resp.Errors[0]
	}
	return nil
}

// Me fetches the identity claims of the current session.
func (c *Client) Me(ctx context.Context) (*UserInfo, error) {
	resp, err := c.Do(ctx, &Operation{Query: meQuery, OperationName: "Me"})
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, resp.Errors[0]
	}
	var payload struct {
		Me *UserInfo `json:"me"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return nil, fmt.Errorf("[Client.Me] decode payload: %w", err)
	}
	if payload.Me == nil {
		return nil, fmt.Errorf("[Client.Me] no user in response")
	}
	return payload.Me, nil
}

// SignOut clears the local session. The refresh token cookie stays with the
// http client's jar but is never used again once the store is empty.
func (c *Client) SignOut() {
	c.store.SignOut()
}
