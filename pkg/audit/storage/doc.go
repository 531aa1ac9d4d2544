// Package storage persists audit records.
//
// # Backends
//
// SQLiteStorage keeps records in two tables, orchestrations and attempts,
// written in one transaction per record. The database/sql driver is
// selectable:
//
//   - "sqlite": modernc.org/sqlite, pure Go, works with CGO_ENABLED=0
//   - "sqlite3": github.com/mattn/go-sqlite3, cgo
//
// Both drivers receive the busy timeout and journal mode through the DSN so
// every pooled connection is configured the same way.
//
// MemoryStorage keeps records in a map and is meant for tests and for
// deployments that do not need the log to survive a restart.
//
// # Usage
//
//	store, err := storage.New(cfg.Audit)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	records, err := store.Query(ctx, &audit.Query{Outcome: audit.OutcomeFailure, Limit: 50})
//
// # Schema
//
// Timestamps are stored as Unix nanoseconds and durations as nanoseconds,
// so range filters compare integers regardless of driver.
package storage
