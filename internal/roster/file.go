package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/roster/internal/domain"
	"github.com/felixgeelhaar/roster/internal/storage/local"
)

// FilePersister keeps the roster as a single JSON array in a local store.
type FilePersister struct {
	store *local.Store
}

// NewFilePersister creates a persister writing <dir>/students.json.
func NewFilePersister(dir string) (*FilePersister, error) {
	store, err := local.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("create local store: %w", err)
	}
	return &FilePersister{store: store}, nil
}

// Path returns the file holding the roster.
func (p *FilePersister) Path() string {
	return p.store.Path(Key)
}

// Load reads the roster, returning nil if it was never saved.
func (p *FilePersister) Load(ctx context.Context) ([]domain.Student, error) {
	var raw json.RawMessage
	if err := p.store.Get(Key, &raw); err != nil {
		switch {
		case errors.Is(err, local.ErrNotFound):
			return nil, nil
		case errors.Is(err, local.ErrDecode):
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageCorrupt, err)
		default:
			return nil, err
		}
	}
	return Decode(raw)
}

// SaveAll replaces the stored roster.
func (p *FilePersister) SaveAll(ctx context.Context, students []domain.Student) error {
	if students == nil {
		students = []domain.Student{}
	}
	return p.store.Put(Key, students)
}

var _ Persister = (*FilePersister)(nil)
