// Package migrations embeds the marketplace schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
