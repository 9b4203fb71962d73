package migrations

import "embed"

// FS embeds the SQL migrations for the SQLite roster database.
//
//go:embed *.sql
var FS embed.FS
