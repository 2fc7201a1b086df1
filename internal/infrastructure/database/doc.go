// Package database provides SQLite connectivity for the gateway's settings store.
//
// The gateway core never touches the database directly: the settings store
// (internal/settings) owns the schema and is the only caller. This package
// only opens the file with sane pragmas and applies embedded migrations.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
