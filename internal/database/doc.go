// Package database opens the stores used to archive console transcripts.
//
//   - PostgreSQL: a pgx connection pool (Connect)
//   - SQLite: a database/sql handle on the modernc.org/sqlite driver
//     (OpenSQLite), in WAL mode with caller-supplied migrations
package database
