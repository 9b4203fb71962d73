package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent roster-level failures. Stores and front ends wrap
// them with context and callers inspect them with errors.Is / errors.As.
// -----------------------------------------------------------------------------

// Roster errors
var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateMatricula = errors.New("matricula already in use")
	ErrNotFound           = errors.New("student not found")
	ErrStorageCorrupt     = errors.New("persisted roster is corrupt")
)

// Session errors
var (
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError reports every field of a draft that failed its rule,
// keyed by the field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Field returns the message recorded for a field, or "" if it passed.
func (e *ValidationError) Field(name string) string {
	return e.Fields[name]
}
