package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/roster/internal/domain"
	"github.com/felixgeelhaar/roster/internal/roster"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sqlc-dev/pqtype"
)

// RosterStore keeps the roster in the roster_blobs row named roster.Key.
type RosterStore struct {
	pool *pgxpool.Pool
	key  string
}

// NewRosterStore creates a PostgreSQL-backed roster persister.
func NewRosterStore(pool *pgxpool.Pool) *RosterStore {
	return &RosterStore{pool: pool, key: roster.Key}
}

// Location names the row holding the roster.
func (s *RosterStore) Location() string {
	return "roster_blobs/" + s.key
}

// Load returns the stored roster, or nil when the row is absent. A row whose
// value is NULL is corrupt.
func (s *RosterStore) Load(ctx context.Context) ([]domain.Student, error) {
	var value pqtype.NullRawMessage
	err := s.pool.QueryRow(ctx, "SELECT value FROM roster_blobs WHERE key = $1", s.key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select roster: %w", err)
	}
	if !value.Valid {
		return nil, fmt.Errorf("%w: %s row has a NULL value", domain.ErrStorageCorrupt, s.key)
	}
	return roster.Decode(value.RawMessage)
}

// SaveAll upserts the roster row.
func (s *RosterStore) SaveAll(ctx context.Context, students []domain.Student) error {
	if students == nil {
		students = []domain.Student{}
	}
	data, err := json.Marshal(students)
	if err != nil {
		return fmt.Errorf("marshal roster: %w", err)
	}

	value := pqtype.NullRawMessage{RawMessage: data, Valid: true}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO roster_blobs (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		s.key, value)
	if err != nil {
		return fmt.Errorf("upsert roster: %w", err)
	}
	return nil
}

var _ roster.Persister = (*RosterStore)(nil)
