// Package migrations embeds the goose migrations for the device cache.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
