package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/wsconsole/internal/database"
)

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS console_transcript (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  TEXT    NOT NULL,
		direction   TEXT    NOT NULL,
		body        TEXT    NOT NULL,
		recorded_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS console_transcript_session_idx
		ON console_transcript (session_id, recorded_at);`,
}

// SQLiteStore writes entries to a local SQLite file. Times are stored as
// unix microseconds.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := database.OpenSQLite(ctx, path, sqliteMigrations...)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Insert writes entries in one transaction.
func (s *SQLiteStore) Insert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transcript tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO console_transcript (session_id, direction, body, recorded_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare transcript insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.SessionID.String(), string(e.Direction), e.Text, e.At.UnixMicro()); err != nil {
			return fmt.Errorf("insert transcript entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transcript tx: %w", err)
	}
	return nil
}

// Session returns the entries recorded for one session, oldest first.
func (s *SQLiteStore) Session(ctx context.Context, id uuid.UUID) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT direction, body, recorded_at
		FROM console_transcript
		WHERE session_id = ?
		ORDER BY recorded_at, id
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			dir  string
			body string
			at   int64
		)
		if err := rows.Scan(&dir, &body, &at); err != nil {
			return nil, fmt.Errorf("scan transcript row: %w", err)
		}
		entries = append(entries, Entry{
			SessionID: id,
			Direction: Direction(dir),
			Text:      body,
			At:        time.UnixMicro(at),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript rows: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
