// Package sqlite provides the persistent evidence base: search runs,
// screened references, and extraction rows, stored in a single SQLite
// database with embedded schema migrations.
package sqlite
