package chatbot

import "embed"

// MigrationsFS holds the SQL migrations applied on startup when the
// Postgres history backend is selected.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
