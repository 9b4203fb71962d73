package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/roster/internal/domain"
)

// Key is the storage key under which backends keep the roster.
const Key = "students"

// Persister loads and saves the whole roster. Load returns (nil, nil) when
// nothing has been saved yet and wraps domain.ErrStorageCorrupt when the stored
// value cannot be decoded.
type Persister interface {
	Load(ctx context.Context) ([]domain.Student, error)
	SaveAll(ctx context.Context, students []domain.Student) error
}

// Decode parses a stored roster blob. Anything other than a JSON array of
// student objects, including a bare null, is domain.ErrStorageCorrupt. An
// empty array decodes to an empty, non-nil roster.
func Decode(data []byte) ([]domain.Student, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: roster is not a JSON array", domain.ErrStorageCorrupt)
	}

	students := []domain.Student{}
	if err := json.Unmarshal(trimmed, &students); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageCorrupt, err)
	}
	return students, nil
}

// CheckIntegrity verifies a loaded roster: every record has an id and passes
// the entity rules, and ids and matriculas are unique.
func CheckIntegrity(students []domain.Student) error {
	ids := make(map[string]int, len(students))
	matriculas := make(map[string]int, len(students))

	for i, s := range students {
		if s.ID == "" {
			return fmt.Errorf("%w: record %d has no id", domain.ErrStorageCorrupt, i)
		}
		if err := s.Draft().Validate(); err != nil {
			return fmt.Errorf("%w: record %d (%s): %v", domain.ErrStorageCorrupt, i, s.ID, err)
		}
		if j, dup := ids[s.ID]; dup {
			return fmt.Errorf("%w: records %d and %d share id %q", domain.ErrStorageCorrupt, j, i, s.ID)
		}
		if j, dup := matriculas[s.Matricula]; dup {
			return fmt.Errorf("%w: records %d and %d share matricula %q", domain.ErrStorageCorrupt, j, i, s.Matricula)
		}
		ids[s.ID] = i
		matriculas[s.Matricula] = i
	}

	return nil
}
