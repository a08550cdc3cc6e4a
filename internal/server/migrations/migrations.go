// Package migrations embeds the goose SQL migrations for the salon schema.
// The schema itself is owned by the provisioning scripts of the instance;
// these migrations exist so a fresh development database can be brought up
// without them.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
