// Package migrations embeds the SQL schema files applied by the MySQL
// account store at startup. Files run in lexical order; each statement
// must be idempotent.
package migrations

import "embed"

// Files exposes all SQL migration files.
//
//go:embed *.sql
var Files embed.FS
