package transcript

import (
	"context"
	"fmt"

	"github.com/rickgao/wsconsole/internal/config"
	"github.com/rickgao/wsconsole/internal/database"
)

// Open returns the store selected by cfg.Driver, or nil for DriverNone.
func Open(ctx context.Context, cfg config.TranscriptConfig) (Store, error) {
	switch cfg.Driver {
	case "", config.DriverNone:
		return nil, nil

	case config.DriverSQLite:
		store, err := OpenSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite transcript: %w", err)
		}
		return store, nil

	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// WriterConfigFrom extracts Writer settings from the transcript config.
func WriterConfigFrom(cfg config.TranscriptConfig) WriterConfig {
	return WriterConfig{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		BufferSize:    cfg.BufferSize,
	}
}
