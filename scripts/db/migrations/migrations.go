package migrations

import "embed"

// FS holds the schema migrations for both user stores, one directory each.
//
//go:embed mongo/*.json postgres/*.sql
var FS embed.FS
