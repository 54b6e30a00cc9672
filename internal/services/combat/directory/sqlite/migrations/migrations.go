// Package migrations embeds the character directory schema.
package migrations

import "embed"

// FS holds the directory migrations.
//
//go:embed *.sql
var FS embed.FS
