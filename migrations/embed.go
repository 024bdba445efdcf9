// Package migrations embeds the SQL schema files so the binary can apply
// them at startup without shipping a migrations directory alongside it.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
