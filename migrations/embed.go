// Package migrations embeds the SQL migrations of the postgres subscription store.
package migrations

import "embed"

// FS holds the up and down migrations.
//
//go:embed *.sql
var FS embed.FS
