// Package migrations embeds the review service's SQL migrations.
package migrations

import "embed"

// FS holds every *.up.sql file of this directory.
//
//go:embed *.sql
var FS embed.FS
