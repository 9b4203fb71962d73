package auth

import (
	"context"
	"sync"
)

// Session is one client's authentication state. It starts unauthenticated.
type Session struct {
	mu            sync.RWMutex
	verifier      Verifier
	authenticated bool
	username      string
}

// NewSession creates an unauthenticated session checked by verifier.
func NewSession(verifier Verifier) *Session {
	return &Session{verifier: verifier}
}

// Login authenticates the session if the verifier accepts the pair. A
// rejected or failed attempt leaves the session as it was.
func (s *Session) Login(ctx context.Context, username, password string) (bool, error) {
	ok, err := s.verifier.Verify(ctx, username, password)
	if err != nil || !ok {
		return false, err
	}

	s.mu.Lock()
	s.authenticated = true
	s.username = username
	s.mu.Unlock()
	return true, nil
}

// Logout clears the session. Logging out twice is harmless.
func (s *Session) Logout() {
	s.mu.Lock()
	s.authenticated = false
	s.username = ""
	s.mu.Unlock()
}

// IsAuthenticated reports whether the last Login succeeded and no Logout followed.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Username returns the authenticated user, or "" when logged out.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}
