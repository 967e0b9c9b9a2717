// Package migrations embeds the drafts schema for each supported driver.
package migrations

import "embed"

// Single binary deployment without external file dependencies.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
