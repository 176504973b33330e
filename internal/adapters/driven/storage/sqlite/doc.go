// Package sqlite provides a SQLite-based implementation of the ingest
// ledger and scheduler store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements two store interfaces
// through a single database connection:
//
//   - IngestLedger: Exams already ingested and run summaries
//   - SchedulerStore: Scheduled task state and execution history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a NNN_name.up.sql file.
//
// # Data Location
//
// By default, the database is stored at ~/.osmium/data/ledger.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
