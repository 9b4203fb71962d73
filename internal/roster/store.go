// Package roster owns the ordered list of students. Every mutation is
// validated, checked against the matricula uniqueness rule, written through
// to a Persister, and only then made visible to readers.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/felixgeelhaar/roster/internal/domain"
	"github.com/google/uuid"
)

// Store is the single source of truth for the roster. Operations are
// serialized, so each call observes the effects of every earlier one.
type Store struct {
	mu        sync.Mutex
	students  []domain.Student
	persister Persister
	notifier  Notifier
	newID     func() string
	now       func() time.Time
}

// NewStore creates a store with an empty roster. Call Load to read what the
// persister holds.
func NewStore(persister Persister) *Store {
	return &Store{
		persister: persister,
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
	}
}

// Open creates a store and loads the persisted roster.
func Open(ctx context.Context, persister Persister) (*Store, error) {
	s := NewStore(persister)
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// SetNotifier registers a receiver for change events.
func (s *Store) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Load replaces the in-memory roster with the persisted one. A roster that
// was never saved loads as empty; an undecodable or inconsistent one fails
// with domain.ErrStorageCorrupt and leaves the current roster untouched.
func (s *Store) Load(ctx context.Context) ([]domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	if err := CheckIntegrity(students); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	s.students = slices.Clone(students)
	slog.Debug("roster loaded", "students", len(s.students))

	return slices.Clone(s.students), nil
}

// List returns a copy of the roster in insertion order.
func (s *Store) List(ctx context.Context) []domain.Student {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Clone(s.students)
	if out == nil {
		out = []domain.Student{}
	}
	return out
}

// Len returns the number of students.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.students)
}

// Get returns the student with id.
func (s *Store) Get(ctx context.Context, id string) (domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Student{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return s.students[i], nil
}

// Add validates draft, assigns a new id, and appends the student.
func (s *Store) Add(ctx context.Context, draft domain.Draft) (domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := draft.Validate(); err != nil {
		return domain.Student{}, err
	}
	if s.matriculaTaken(draft.Matricula, "") {
		return domain.Student{}, fmt.Errorf("%w: %s", domain.ErrDuplicateMatricula, draft.Matricula)
	}

	id := s.newID()
	for s.indexOf(id) >= 0 {
		id = s.newID()
	}
	student := draft.WithID(id)

	next := make([]domain.Student, 0, len(s.students)+1)
	next = append(next, s.students...)
	next = append(next, student)

	if err := s.commit(ctx, next); err != nil {
		return domain.Student{}, err
	}

	slog.Debug("student added", "id", student.ID, "matricula", student.Matricula)
	s.notify(ctx, EventStudentCreated, student)

	return student, nil
}

// Update replaces every field except the id of the student with id, keeping
// its position. A student may keep its own matricula.
func (s *Store) Update(ctx context.Context, id string, draft domain.Draft) (domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Student{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err := draft.Validate(); err != nil {
		return domain.Student{}, err
	}
	if s.matriculaTaken(draft.Matricula, id) {
		return domain.Student{}, fmt.Errorf("%w: %s", domain.ErrDuplicateMatricula, draft.Matricula)
	}

	student := draft.WithID(id)
	next := slices.Clone(s.students)
	next[i] = student

	if err := s.commit(ctx, next); err != nil {
		return domain.Student{}, err
	}

	slog.Debug("student updated", "id", id)
	s.notify(ctx, EventStudentUpdated, student)

	return student, nil
}

// Remove deletes the student with id. Removing an id twice fails the second
// time with domain.ErrNotFound.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	removed := s.students[i]
	next := slices.Delete(slices.Clone(s.students), i, i+1)

	if err := s.commit(ctx, next); err != nil {
		return err
	}

	slog.Debug("student removed", "id", id)
	s.notify(ctx, EventStudentRemoved, removed)

	return nil
}

// commit persists next and, on success, makes it the current roster.
func (s *Store) commit(ctx context.Context, next []domain.Student) error {
	if err := s.persister.SaveAll(ctx, next); err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	s.students = next
	return nil
}

func (s *Store) notify(ctx context.Context, typ EventType, student domain.Student) {
	if s.notifier == nil {
		return
	}
	event := Event{Type: typ, Student: student, OccurredAt: s.now().UTC()}
	if err := s.notifier.Notify(ctx, event); err != nil {
		slog.Warn("roster event not delivered", "type", typ, "id", student.ID, "error", err)
	}
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.students, func(st domain.Student) bool {
		return st.ID == id
	})
}

// matriculaTaken reports whether a student other than exceptID uses matricula.
func (s *Store) matriculaTaken(matricula, exceptID string) bool {
	return slices.ContainsFunc(s.students, func(st domain.Student) bool {
		return st.Matricula == matricula && st.ID != exceptID
	})
}
