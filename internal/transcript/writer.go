package transcript

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Writer queues entries and flushes them to a Store in batches.
type Writer struct {
	cfg    WriterConfig
	store  Store
	logger *slog.Logger

	input *queue

	// Batching
	batch       []Entry
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx      context.Context // flush context; outlives cancellation of Start's ctx
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	stats WriterStats
}

// NewWriter creates a new Writer.
func NewWriter(cfg WriterConfig, store Store, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultWriterConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = def.BufferSize
	}
	return &Writer{
		cfg:    cfg,
		store:  store,
		logger: logger,
		input:  newQueue(cfg.BatchSize, cfg.BufferSize),
		batch:  make([]Entry, 0, cfg.BatchSize),
		ctx:    context.Background(),
		stop:   make(chan struct{}),
	}
}

// Add queues an entry without blocking. It returns false if the entry was
// dropped because the queue is full or the Writer is stopped.
func (w *Writer) Add(e Entry) bool {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if w.input.push(e) {
		return true
	}
	w.batchMu.Lock()
	w.stats.Dropped++
	w.batchMu.Unlock()
	return false
}

// Start begins consuming entries and flushing them to the store. Entries
// still queued when ctx is cancelled are written by Stop.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx = context.WithoutCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("transcript writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains the queue, writes what is left and stops the goroutines.
// It returns ctx.Err() if the goroutines did not finish in time. The store
// is not closed.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping transcript writer")

	// consumeLoop drains what is queued, then exits.
	w.input.close()
	w.stopOnce.Do(func() { close(w.stop) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("transcript writer stop timed out", "pending", w.input.len())
		err = ctx.Err()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	// Final flush
	w.flush(ctx)

	w.logger.Info("transcript writer stopped",
		"inserts", w.Stats().Inserts,
		"dropped", w.Stats().Dropped,
	)
	return err
}

// Stats returns current counters.
func (w *Writer) Stats() WriterStats {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

// consumeLoop moves entries from the queue into the batch until the queue
// is closed and empty.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		e, ok := w.input.pop()
		if !ok {
			return
		}

		w.batchMu.Lock()
		w.batch = append(w.batch, e)
		shouldFlush := len(w.batch) >= w.cfg.BatchSize
		w.batchMu.Unlock()

		if shouldFlush {
			w.flush(w.ctx)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stop:
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// flush writes the current batch to the store.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]Entry, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.store.Insert(ctx, batch); err != nil {
		w.logger.Error("transcript insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.stats.Inserts += int64(len(batch))
	w.stats.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed transcript",
		"count", len(batch),
		"duration", time.Since(start),
	)
}
