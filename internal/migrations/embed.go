// Package migrations embeds the goose SQL migrations of each supported
// database. Files live under a directory named after the dialect.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS
