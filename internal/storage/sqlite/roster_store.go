package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/roster/internal/domain"
)

const (
	metaSavedAt = "saved_at"
	metaCount   = "count"
)

// RosterStore persists the roster as one row per student, ordered by a
// position column. Every save rewrites the table in a single transaction.
type RosterStore struct {
	db *DB
}

// NewRosterStore creates a SQLite-backed roster persister. db must be migrated.
func NewRosterStore(db *DB) *RosterStore {
	return &RosterStore{db: db}
}

// Load returns the saved roster in position order, or nil if nothing was
// ever saved.
func (s *RosterStore) Load(ctx context.Context) ([]domain.Student, error) {
	want, saved, err := s.savedCount(ctx)
	if err != nil {
		return nil, err
	}
	if !saved {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, nome, matricula, email, data_nascimento
		FROM students ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	students := []domain.Student{}
	for rows.Next() {
		var st domain.Student
		if err := rows.Scan(&st.ID, &st.Nome, &st.Matricula, &st.Email, &st.DataNascimento); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	if len(students) != want {
		return nil, fmt.Errorf("%w: %d students stored, %d recorded", domain.ErrStorageCorrupt, len(students), want)
	}
	return students, nil
}

// SaveAll replaces the stored roster.
func (s *RosterStore) SaveAll(ctx context.Context, students []domain.Student) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM students"); err != nil {
		return fmt.Errorf("clear students: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO students (id, position, nome, matricula, email, data_nascimento)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, st := range students {
		if _, err := stmt.ExecContext(ctx, st.ID, i, st.Nome, st.Matricula, st.Email, st.DataNascimento); err != nil {
			return fmt.Errorf("insert student %s: %w", st.ID, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := setMeta(ctx, tx, metaSavedAt, now); err != nil {
		return err
	}
	if err := setMeta(ctx, tx, metaCount, strconv.Itoa(len(students))); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster: %w", err)
	}
	return nil
}

// savedCount reports the student count recorded by the last save.
func (s *RosterStore) savedCount(ctx context.Context) (int, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM roster_meta WHERE key = ?", metaCount).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read roster meta: %w", err)
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: roster count %q", domain.ErrStorageCorrupt, raw)
	}
	return n, true, nil
}

func setMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO roster_meta (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("write roster meta %s: %w", key, err)
	}
	return nil
}
