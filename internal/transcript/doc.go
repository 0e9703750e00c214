// Package transcript archives console traffic.
//
// Every frame a session sends or receives becomes an Entry. A Writer
// queues entries without blocking the session and flushes them to a
// Store in batches:
//   - PostgresStore: COPY into console_transcript through a pgx pool
//   - SQLiteStore: a transaction of prepared inserts on a local file
//
// Entries are append-only; nothing is updated or deleted.
package transcript
