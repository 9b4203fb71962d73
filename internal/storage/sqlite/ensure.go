package sqlite

import "github.com/felixgeelhaar/roster/internal/roster"

// Ensure SQLite stores implement the storage interfaces.
var _ roster.Persister = (*RosterStore)(nil)
