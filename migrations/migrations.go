// Package migrations embeds the SQL schema files.
package migrations

import "embed"

// FS holds every NNNNNN_name.up.sql and NNNNNN_name.down.sql file.
//
//go:embed *.sql
var FS embed.FS
