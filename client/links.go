package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-auth-gateway/token"
)

// Operation is a single GraphQL request travelling down the link chain.
type Operation struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Header        http.Header    `json:"-"`
}

// GraphQLError is an error entry from a GraphQL response.
type GraphQLError struct {
	Message string `json:"message"`
}

func (e GraphQLError) Error() string { return e.Message }

type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// Link processes an operation, usually delegating to the next link in the
// chain.
type Link interface {
	Do(ctx context.Context, op *Operation) (*Response, error)
}

type LinkFunc func(ctx context.Context, op *Operation) (*Response, error)

func (f LinkFunc) Do(ctx context.Context, op *Operation) (*Response, error) {
	return f(ctx, op)
}

// HTTPTransport is the terminal link, posting operations to the GraphQL
// endpoint. The http client's cookie jar carries the refresh token cookie.
type HTTPTransport struct {
	endpoint string
	client   *http.Client
}

var _ Link = (*HTTPTransport)(nil)

func NewHTTPTransport(endpoint string, httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPTransport{endpoint: endpoint, client: httpClient}
}

func (t *HTTPTransport) Do(ctx context.Context, op *Operation) (*Response, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("[HTTPTransport.Do] marshal operation: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("[HTTPTransport.Do] create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range op.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[HTTPTransport.Do] post operation: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	var gqlResponse Response
	if err := json.NewDecoder(resp.Body).Decode(&gqlResponse); err != nil {
		return nil, fmt.Errorf("[HTTPTransport.Do] decode response: %w", err)
	}
	return &gqlResponse, nil
}

// unauthorizedMessage is the exact error text the server emits for
// operations that need a signed-in user. The suppression link matches on it
// verbatim.
const unauthorizedMessage = "Unauthorized"

// SuppressUnauthorizedLink drops "Unauthorized" errors until the chain has
// attached a token at least once: before that point they only mean the
// session has not been established yet, and surfacing them would flash
// spurious errors during startup.
type SuppressUnauthorizedLink struct {
	attached *atomic.Bool
	next     Link
}

var _ Link = (*SuppressUnauthorizedLink)(nil)

func NewSuppressUnauthorizedLink(attached *atomic.Bool, next Link) *SuppressUnauthorizedLink {
	return &SuppressUnauthorizedLink{attached: attached, next: next}
}

func (l *SuppressUnauthorizedLink) Do(ctx context.Context, op *Operation) (*Response, error) {
	resp, err := l.next.Do(ctx, op)
	if err != nil || resp == nil || l.attached.Load() {
		return resp, err
	}
	var kept []GraphQLError
	for _, gqlErr := range resp.Errors {
		if gqlErr.Message != unauthorizedMessage {
			kept = append(kept, gqlErr)
		}
	}
	resp.Errors = kept
	return resp, nil
}

// AuthHeaderLink attaches the stored access token as a bearer header and
// records that a token has been attached at least once.
type AuthHeaderLink struct {
	store    *SessionStore
	attached *atomic.Bool
	next     Link
}

var _ Link = (*AuthHeaderLink)(nil)

func NewAuthHeaderLink(store *SessionStore, attached *atomic.Bool, next Link) *AuthHeaderLink {
	return &AuthHeaderLink{store: store, attached: attached, next: next}
}

func (l *AuthHeaderLink) Do(ctx context.Context, op *Operation) (*Response, error) {
	if accessToken := l.store.Token(); accessToken != "" {
		if op.Header == nil {
			op.Header = http.Header{}
		}
		op.Header.Set("Authorization", "Bearer "+accessToken)
		l.attached.Store(true)
	}
	return l.next.Do(ctx, op)
}

const (
	refreshOperationName = "Refresh"
	refreshMutation      = `mutation Refresh { refresh { email accessToken } }`
)

// RefreshLink renews the access token before forwarding an operation when a
// session exists but its token is missing or expired. The refresh mutation
// goes straight to the transport so it cannot recurse through the chain,
// and concurrent operations share a single refresh round trip. On success
// the operation's bearer header is rewritten with the fresh token; on
// failure the session is signed out and the operation proceeds
// unauthenticated.
type RefreshLink struct {
	store     *SessionStore
	transport Link
	attached  *atomic.Bool
	group     singleflight.Group
	now       func() time.Time
	next      Link
}

var _ Link = (*RefreshLink)(nil)

func NewRefreshLink(store *SessionStore, transport Link, attached *atomic.Bool, next Link) *RefreshLink {
	return &RefreshLink{
		store:     store,
		transport: transport,
		attached:  attached,
		now:       time.Now,
		next:      next,
	}
}

func (l *RefreshLink) Do(ctx context.Context, op *Operation) (*Response, error) {
	if l.shouldRefresh() {
		accessToken, err := l.refresh(ctx)
		if err != nil {
			l.store.SignOut()
			return l.next.Do(ctx, op)
		}
		if op.Header == nil {
			op.Header = http.Header{}
		}
		op.Header.Set("Authorization", "Bearer "+accessToken)
		l.attached.Store(true)
	}
	return l.next.Do(ctx, op)
}

func (l *RefreshLink) shouldRefresh() bool {
	if l.store.Email() == "" {
		return false
	}
	accessToken := l.store.Token()
	if accessToken == "" {
		return true
	}
	return token.Expired(accessToken, l.now())
}

func (l *RefreshLink) refresh(ctx context.Context) (string, error) {
	accessToken, err, _ := l.group.Do("refresh", func() (any, error) {
		resp, err := l.transport.Do(ctx, &Operation{
			Query:         refreshMutation,
			OperationName: refreshOperationName,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Errors) > 0 {
			return "", resp.Errors[0]
		}
		var payload struct {
			Refresh struct {
				Email       string `json:"email"`
				AccessToken string `json:"accessToken"`
			} `json:"refresh"`
		}
		if err := json.Unmarshal(resp.Data, &payload); err != nil {
			return "", fmt.Errorf("[RefreshLink.refresh] decode refresh payload: %w", err)
		}
		if payload.Refresh.AccessToken == "" {
			return "", errors.New("[RefreshLink.refresh] empty access token in refresh payload")
		}
		l.store.SetAuthToken(payload.Refresh.AccessToken)
		return payload.Refresh.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return accessToken.(string), nil
}
