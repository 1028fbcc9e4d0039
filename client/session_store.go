package client

import "sync"

// emailStorageKey is the durable-storage key for the signed-in email.
const emailStorageKey = "email"

// SessionStore holds the client's session state: the signed-in email, which
// persists across restarts, and the access token, which lives in memory
// only and is re-fetched through the refresh flow.
type SessionStore struct {
	mu      sync.RWMutex
	durable Storage
	email   string
	token   string
	loaded  bool
}

func NewSessionStore(durable Storage) *SessionStore {
	if durable == nil {
		durable = NewMemStorage()
	}
	return &SessionStore{durable: durable}
}

// Load restores the persisted email. Until Load has run the store reports
// itself as loading and no session as present.
func (s *SessionStore) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if email, ok := s.durable.Get(emailStorageKey); ok {
		s.email = email
	}
	s.loaded = true
}

func (s *SessionStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loaded
}

// SignIn records a fresh session. Only the email goes to durable storage,
// the access token is never persisted.
func (s *SessionStore) SignIn(email, accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = email
	s.token = accessToken
	s.loaded = true
	s.durable.Set(emailStorageKey, email)
}

// SignOut clears the session, durable state included.
func (s *SessionStore) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = ""
	s.token = ""
	s.durable.Delete(emailStorageKey)
}

// SetAuthToken replaces the in-memory access token after a refresh.
func (s *SessionStore) SetAuthToken(accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = accessToken
}

// Email returns the signed-in email, or "" when no session is present or
// Load has not run yet.
func (s *SessionStore) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return ""
	}
	return s.email
}

func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}
