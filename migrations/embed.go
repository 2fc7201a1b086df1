// Package migrations embeds the settings store schema into the binary.
package migrations

import (
	"embed"

	"github.com/scanlink/scanlink-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
