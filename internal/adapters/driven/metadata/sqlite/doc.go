// Package sqlite provides the embedded metadata store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Statements are kept in a single triples
// table next to a documents table that records every loaded file.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// The database is stored at <workspace>/store/graph.db.
//
// # Queries
//
// The store accepts SQL SELECT statements. Each projected variable v is returned
// as the columns v, v__kind, v__dt and v__lang; see the query package.
package sqlite
