package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema changes; each numbered file registers one.
var Migrations = migrate.NewMigrations()
