package transcript

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrUnknownDriver = errors.New("unknown transcript driver")
)

// Direction is the side a frame travelled.
type Direction string

const (
	Inbound  Direction = "in"  // device to console
	Outbound Direction = "out" // console to device
)

// Entry is one archived frame.
type Entry struct {
	SessionID uuid.UUID
	Direction Direction
	Text      string
	At        time.Time
}

// Store persists batches of entries.
type Store interface {
	Insert(ctx context.Context, entries []Entry) error
	Close() error
}

// WriterConfig holds Writer settings.
type WriterConfig struct {
	BatchSize     int           // Flush when this many entries are pending
	FlushInterval time.Duration // Flush at least this often
	BufferSize    int           // Max queued entries before Add drops
}

// DefaultWriterConfig returns default writer configuration.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    10000,
	}
}

// WriterStats contains Writer counters.
type WriterStats struct {
	Inserts int64 // Entries written
	Errors  int64 // Failed flushes
	Flushes int64 // Successful flushes
	Dropped int64 // Entries rejected by a full or closed queue
}
