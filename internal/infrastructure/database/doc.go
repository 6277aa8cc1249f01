// Package database provides SQLite connectivity for the lampfx device
// inventory.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations read from an fs.FS (usually the embedded
//     migrations package)
//   - Connection lifecycle and health checks
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive-only. New columns must be NULLABLE or carry a
// DEFAULT, and each .up.sql has a matching .down.sql.
package database
