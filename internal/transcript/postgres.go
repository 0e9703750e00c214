package transcript

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS console_transcript (
	id          BIGSERIAL PRIMARY KEY,
	session_id  UUID        NOT NULL,
	direction   TEXT        NOT NULL,
	body        TEXT        NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS console_transcript_session_idx
	ON console_transcript (session_id, recorded_at);
`

var transcriptColumns = []string{"session_id", "direction", "body", "recorded_at"}

// PostgresStore writes entries to PostgreSQL with COPY.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the transcript table if needed. The store takes
// ownership of the pool.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create transcript schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Insert copies entries into console_transcript.
func (s *PostgresStore) Insert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"console_transcript"},
		transcriptColumns,
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{
				pgtype.UUID{Bytes: e.SessionID, Valid: true},
				string(e.Direction),
				e.Text,
				e.At,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy transcript: %w", err)
	}
	if n != int64(len(entries)) {
		return fmt.Errorf("copy transcript: wrote %d of %d rows", n, len(entries))
	}
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
