// Package migrations holds the schema migrations applied by the SQLite
// store on open.
package migrations

import "embed"

// FS holds the .sql migration files, embedded at build time.
//
//go:embed *.sql
var FS embed.FS
