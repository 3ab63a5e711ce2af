// Package migrations embeds the SQL migrations for the invocation audit log.
package migrations

import "embed"

// FS holds the embedded up and down migrations, applied by database.ApplyMigrations.
//
//go:embed *.sql
var FS embed.FS
