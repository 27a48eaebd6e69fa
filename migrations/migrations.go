// Package migrations embeds the goose SQL migrations so the migrate binary needs no files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
