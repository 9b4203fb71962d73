package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/roster/internal/domain"
	"github.com/felixgeelhaar/roster/internal/roster"
	"github.com/redis/go-redis/v9"
)

// RosterStore keeps the roster under a single key, by default "roster:students".
type RosterStore struct {
	client redis.Cmdable
	key    string
}

// NewRosterStore creates a Redis-backed roster persister.
func NewRosterStore(client redis.Cmdable, prefix string) *RosterStore {
	return &RosterStore{client: client, key: prefix + roster.Key}
}

// Key returns the Redis key holding the roster.
func (s *RosterStore) Key() string {
	return s.key
}

// Load returns the stored roster, or nil if the key is absent.
func (s *RosterStore) Load(ctx context.Context) ([]domain.Student, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}

	return roster.Decode(data)
}

// SaveAll overwrites the roster key. The key never expires.
func (s *RosterStore) SaveAll(ctx context.Context, students []domain.Student) error {
	if students == nil {
		students = []domain.Student{}
	}
	data, err := json.Marshal(students)
	if err != nil {
		return fmt.Errorf("marshal roster: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

var _ roster.Persister = (*RosterStore)(nil)
