package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-gateway/auth"
	"github.com/jrsteele09/go-auth-gateway/idp/idpfakes"
	"github.com/jrsteele09/go-auth-gateway/internal/config"
	"github.com/jrsteele09/go-auth-gateway/server"
	"github.com/jrsteele09/go-auth-gateway/token"
)

const (
	testEmail    = "alice@example.com"
	testUsername = "alice"
	testPassword = "Secr3tPassw0rd!"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwtlib.MapClaims{
		"sub":              uuid.NewString(),
		"email":            testEmail,
		"cognito:username": testUsername,
		"exp":              expiresAt.Unix(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("client-test-secret"))
	require.NoError(t, err)
	return signed
}

// fakeLink records every operation it sees and answers with fn.
type fakeLink struct {
	mu    sync.Mutex
	calls []*Operation
	fn    func(ctx context.Context, op *Operation) (*Response, error)
}

func (f *fakeLink) Do(ctx context.Context, op *Operation) (*Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	fn := f.fn
	f.mu.Unlock()
	return fn(ctx, op)
}

func (f *fakeLink) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func okResponse(data string) *Response {
	return &Response{Data: json.RawMessage(data)}
}

func refreshResponse(accessToken string) *Response {
	return okResponse(fmt.Sprintf(`{"refresh":{"email":%q,"accessToken":%q}}`, testEmail, accessToken))
}

func TestAuthHeaderLinkAttachesBearerToken(t *testing.T) {
	store := NewSessionStore(nil)
	store.SignIn(testEmail, "the-token")
	next := &fakeLink{fn: func(_ context.Context, _ *Operation) (*Response, error) {
		return okResponse(`{}`), nil
	}}
	attached := &atomic.Bool{}
	link := NewAuthHeaderLink(store, attached, next)

	_, err := link.Do(context.Background(), &Operation{Query: `query { me { id } }`})

	require.NoError(t, err)
	require.Equal(t, "Bearer the-token", next.calls[0].Header.Get("Authorization"))
	require.True(t, attached.Load())
}

func TestAuthHeaderLinkNoTokenLeavesOperationUntouched(t *testing.T) {
	store := NewSessionStore(nil)
	next := &fakeLink{fn: func(_ context.Context, _ *Operation) (*Response, error) {
		return okResponse(`{}`), nil
	}}
	attached := &atomic.Bool{}
	link := NewAuthHeaderLink(store, attached, next)

	_, err := link.Do(context.Background(), &Operation{Query: `query { me { id } }`})

	require.NoError(t, err)
	require.Empty(t, next.calls[0].Header.Get("Authorization"))
	require.False(t, attached.Load())
}

func TestSuppressUnauthorizedLinkFiltersBeforeFirstAttach(t *testing.T) {
	next := &fakeLink{fn: func(_ context.Context, _ *Operation) (*Response, error) {
		return &Response{Errors: []GraphQLError{{Message: "Unauthorized"}, {Message: "boom"}}}, nil
	}}
	attached := &atomic.Bool{}
	link := NewSuppressUnauthorizedLink(attached, next)

	resp, err := link.Do(context.Background(), &Operation{})
	require.NoError(t, err)
	require.Equal(t, []GraphQLError{{Message: "boom"}}, resp.Errors)

	// Once a token has been attached, Unauthorized is a real error.
	attached.Store(true)
	resp, err = link.Do(context.Background(), &Operation{})
	require.NoError(t, err)
	require.Len(t, resp.Errors, 2)
}

func TestRefreshLinkRenewsExpiredTokenAndRewritesHeader(t *testing.T) {
	store := NewSessionStore(nil)
	store.SignIn(testEmail, signedToken(t, time.Now().Add(-time.Minute)))
	freshToken := signedToken(t, time.Now().Add(time.Hour))

	transport := &fakeLink{fn: func(_ context.Context, _ *Operation) (*Response, error) {
		return refreshResponse(freshToken), nil
	}}
	next := &fakeLink{fn: func(_ context.Context, _ *Operation) (*Response, error) {
		return okResponse(`{}`), nil
	}}
	attached := &atomic.Bool{}
	link := NewRefreshLink(store, transport, attached, next)

	_, err := link.Do(context.Background(), &Operation{Query: `query { me { id } }`})

	require.NoError(t, err)
	require.Equal(t, 1, transport.callCount())
	require.Equal(t, freshToken, store.Token())
	require.Equal(t, "Bearer "+freshToken, next.calls[0].Header.Get("Authorization"))
	require.True(t, attached.Load())
}

func TestRefreshLinkSkipsWhenSignedOut(t *testing.T) {
	store := NewSessionStore(nil)
	transport := &fakeLink{fn: func(_ context.Context, _ *Operation) (*Response, error) {
		t.Fatal("refresh must not run without a session")
		return nil, nil
	}}
	next := &fakeLink{fn: func(_ context.Context, _ *Operation) (*Response, error) {
		return okResponse(`{}`), nil
	}}
	link := NewRefreshLink(store, transport, &atomic.Bool{}, next)

	_, err := link.Do(context.Background(), &Operation{})

	require.NoError(t, err)
	require.Equal(t, 1, next.callCount())
}

func TestRefreshLinkSignsOutWhenRefreshFails(t *testing.T) {
	durable := NewMemStorage()
	store := NewSessionStore(durable)
	store.SignIn(testEmail, "")

	transport := &fakeLink{fn: func(_ context.Context, _ *Operation) (*Response, error) {
		return &Response{Errors: []GraphQLError{{Message: "missing refresh token cookie"}}}, nil
	}}
	next := &fakeLink{fn: func(_ context.Context, _ *Operation) (*Response, error) {
		return okResponse(`{}`), nil
	}}
	link := NewRefreshLink(store, transport, &atomic.Bool{}, next)

	_, err := link.Do(context.Background(), &Operation{})

	require.NoError(t, err, "the operation still proceeds unauthenticated")
	require.Equal(t, 1, next.callCount())
	require.Empty(t, store.Email())
	_, ok := durable.Get(emailStorageKey)
	require.False(t, ok, "durable email cleared on sign out")
}

func TestRefreshLinkDeduplicatesConcurrentRefreshes(t *testing.T) {
	store := NewSessionStore(nil)
	store.SignIn(testEmail, "")
	freshToken := signedToken(t, time.Now().Add(time.Hour))

	release := make(chan struct{})
	var refreshes atomic.Int32
	transport := &fakeLink{fn: func(_ context.Context, _ *Operation) (*Response, error) {
		refreshes.Add(1)
		<-release
		return refreshResponse(freshToken), nil
	}}
	next := &fakeLink{fn: func(_ context.Context, _ *Operation) (*Response, error) {
		return okResponse(`{}`), nil
	}}
	link := NewRefreshLink(store, transport, &atomic.Bool{}, next)

	const workers = 5
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := link.Do(context.Background(), &Operation{Query: `query { me { id } }`})
			errs <- err
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, int32(1), refreshes.Load(), "concurrent operations share one refresh")
	require.Equal(t, workers, next.callCount())
	for _, op := range next.calls {
		require.Equal(t, "Bearer "+freshToken, op.Header.Get("Authorization"))
	}
}

func TestSessionStorePersistsEmailOnly(t *testing.T) {
	durable := NewMemStorage()
	store := NewSessionStore(durable)
	store.Load()
	require.False(t, store.IsLoading())

	store.SignIn(testEmail, "the-token")
	email, ok := durable.Get(emailStorageKey)
	require.True(t, ok)
	require.Equal(t, testEmail, email)
	require.Equal(t, "the-token", store.Token())

	// A fresh store over the same durable state restores the email but
	// has no token, that only comes back through refresh.
	restored := NewSessionStore(durable)
	require.Empty(t, restored.Email(), "no session reported before Load")
	restored.Load()
	require.Equal(t, testEmail, restored.Email())
	require.Empty(t, restored.Token())

	restored.SignOut()
	_, ok = durable.Get(emailStorageKey)
	require.False(t, ok)
}

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	storage := NewFileStorage(path)

	_, ok := storage.Get(emailStorageKey)
	require.False(t, ok)

	storage.Set(emailStorageKey, testEmail)
	reopened := NewFileStorage(path)
	email, ok := reopened.Get(emailStorageKey)
	require.True(t, ok)
	require.Equal(t, testEmail, email)

	reopened.Delete(emailStorageKey)
	_, ok = NewFileStorage(path).Get(emailStorageKey)
	require.False(t, ok)
}

// fakeVerifier accepts any well-formed unexpired token, verification
// against real signing keys is covered in the token package.
type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, rawToken string) (*token.Claims, error) {
	if token.Expired(rawToken, time.Now()) {
		return nil, fmt.Errorf("token expired")
	}
	return token.Decode(rawToken)
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	provider := idpfakes.NewFakeProvider()
	service, err := auth.NewService(provider, zerolog.Nop())
	require.NoError(t, err)
	srv, err := server.New(config.New(), service, fakeVerifier{})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = provider.SignUp(ctx, testEmail, testUsername, testPassword)
	require.NoError(t, err)
	require.NoError(t, provider.ConfirmRegistration(ctx, testUsername, idpfakes.DefaultConfirmationCode))

	backend := httptest.NewServer(srv)
	t.Cleanup(backend.Close)
	return backend
}

func TestClientLoginMeAndSessionRestore(t *testing.T) {
	backend := newBackend(t)
	ctx := context.Background()
	storagePath := filepath.Join(t.TempDir(), "session.json")

	store := NewSessionStore(NewFileStorage(storagePath))
	store.Load()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	httpClient := &http.Client{Jar: jar}

	cl, err := New(backend.URL+server.RouteGraphQL, store, WithHTTPClient(httpClient))
	require.NoError(t, err)

	payload, err := cl.Login(ctx, testUsername, testPassword)
	require.NoError(t, err)
	require.Equal(t, testEmail, payload.Email)
	require.NotEmpty(t, payload.AccessToken)

	me, err := cl.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, testEmail, me.Email)
	require.Equal(t, testUsername, me.Username)

	// Simulate a reload: the durable email survives, the in-memory token
	// does not, and the next operation refreshes through the cookie.
	restored := NewSessionStore(NewFileStorage(storagePath))
	restored.Load()
	require.Equal(t, testEmail, restored.Email())
	require.Empty(t, restored.Token())

	cl2, err := New(backend.URL+server.RouteGraphQL, restored, WithHTTPClient(httpClient))
	require.NoError(t, err)
	me, err = cl2.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, testEmail, me.Email)
	require.NotEmpty(t, restored.Token())
}

func TestClientSuppressesUnauthorizedOnlyBeforeFirstToken(t *testing.T) {
	backend := newBackend(t)
	ctx := context.Background()

	store := NewSessionStore(nil)
	store.Load()
	cl, err := New(backend.URL+server.RouteGraphQL, store)
	require.NoError(t, err)

	// Signed out, no token ever attached: the Unauthorized error is
	// swallowed and the query just reports missing data.
	_, err = cl.Me(ctx)
	require.Error(t, err)
	require.NotEqual(t, "Unauthorized", err.Error())

	_, err = cl.Login(ctx, testUsername, testPassword)
	require.NoError(t, err)
	_, err = cl.Me(ctx)
	require.NoError(t, err)

	// After sign out the flag stays set, so Unauthorized surfaces.
	cl.SignOut()
	_, err = cl.Me(ctx)
	require.Error(t, err)
	require.Equal(t, "Unauthorized", err.Error())
}
