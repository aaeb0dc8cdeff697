// Package database provides SQLite connectivity for the servicegate
// audit store.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - In-code, additive-only schema migrations
//   - Connection lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//   - Audit entries record credential activity but never raw secrets
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
