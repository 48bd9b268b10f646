package migrations

import "embed"

// Migrations holds the SQL migration files, compiled into the binary so the
// daemon can bootstrap its own database file on first run.
//
//go:embed *.sql
var Migrations embed.FS
