// Package auth gates access to the roster behind a username/password check.
package auth

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned by HashPassword for an empty password.
var ErrEmptyPassword = errors.New("password is empty")

// Verifier decides whether a username/password pair is valid. A false result
// is a rejected pair; an error means the check itself could not run.
type Verifier interface {
	Verify(ctx context.Context, username, password string) (bool, error)
}

// StaticVerifier checks credentials against a fixed set of bcrypt hashes,
// usually loaded from configuration.
type StaticVerifier struct {
	hashes map[string]string
}

// NewStaticVerifier creates a verifier from a username to bcrypt hash map.
func NewStaticVerifier(hashes map[string]string) *StaticVerifier {
	copied := make(map[string]string, len(hashes))
	for user, hash := range hashes {
		copied[user] = hash
	}
	return &StaticVerifier{hashes: copied}
}

// Verify compares password with the stored hash. Unknown users are compared
// against a dummy hash so both paths cost one bcrypt comparison.
func (v *StaticVerifier) Verify(ctx context.Context, username, password string) (bool, error) {
	hash, ok := v.hashes[username]
	if !ok {
		compareDummy(password)
		return false, nil
	}
	return checkHash(hash, password), nil
}

// Users returns the number of configured users.
func (v *StaticVerifier) Users() int {
	return len(v.hashes)
}

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkHash(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

func compareDummy(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("roster-unknown-user"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

var _ Verifier = (*StaticVerifier)(nil)
