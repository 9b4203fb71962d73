package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresVerifier checks credentials against the roster_users table.
type PostgresVerifier struct {
	pool *pgxpool.Pool
}

// NewPostgresVerifier creates a verifier backed by PostgreSQL.
func NewPostgresVerifier(pool *pgxpool.Pool) *PostgresVerifier {
	return &PostgresVerifier{pool: pool}
}

// Verify looks up the user's hash and compares it with password.
func (v *PostgresVerifier) Verify(ctx context.Context, username, password string) (bool, error) {
	var hash string
	err := v.pool.QueryRow(ctx,
		"SELECT password_hash FROM roster_users WHERE username = $1", username,
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		compareDummy(password)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return checkHash(hash, password), nil
}

// SetPassword creates the user or replaces its password.
func (v *PostgresVerifier) SetPassword(ctx context.Context, username, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	_, err = v.pool.Exec(ctx, `
		INSERT INTO roster_users (username, password_hash) VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash`,
		username, hash)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

var _ Verifier = (*PostgresVerifier)(nil)
