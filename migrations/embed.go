// Package migrations holds the goose SQL migrations of the summa schema.
package migrations

import "embed"

// FS contains every migration file.
//
//go:embed *.sql
var FS embed.FS
