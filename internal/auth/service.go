package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"

	"github.com/felixgeelhaar/roster/internal/domain"
)

// ErrSessionNotFound is returned for a token with no live session.
var ErrSessionNotFound = errors.New("session not found")

const tokenBytes = 32

// Sessions maps bearer tokens to authenticated sessions. Sessions live as
// long as the process; there is no expiry.
type Sessions struct {
	mu       sync.RWMutex
	verifier Verifier
	byToken  map[string]*Session
}

// NewSessions creates an empty registry.
func NewSessions(verifier Verifier) *Sessions {
	return &Sessions{
		verifier: verifier,
		byToken:  make(map[string]*Session),
	}
}

// Login authenticates a new session and returns its token. Rejected
// credentials yield domain.ErrInvalidCredentials.
func (r *Sessions) Login(ctx context.Context, username, password string) (string, *Session, error) {
	sess := NewSession(r.verifier)
	ok, err := sess.Login(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := generateToken(tokenBytes)
	if err != nil {
		return "", nil, err
	}

	r.mu.Lock()
	r.byToken[token] = sess
	r.mu.Unlock()

	return token, sess, nil
}

// Lookup returns the authenticated session for token.
func (r *Sessions) Lookup(token string) (*Session, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	r.mu.RLock()
	sess, ok := r.byToken[token]
	r.mu.RUnlock()

	if !ok || !sess.IsAuthenticated() {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Logout ends the session for token.
func (r *Sessions) Logout(token string) error {
	r.mu.Lock()
	sess, ok := r.byToken[token]
	delete(r.byToken, token)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.Logout()
	return nil
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byToken)
}

// generateToken creates a cryptographically secure random token
func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
