// Package migrations embeds the PostgreSQL schema migrations of the
// transfer record table.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
