// Package batch provides a buffered batch writer shared by the sinks that
// write to remote stores in chunks.
package batch

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultBatchSize is the default number of items to buffer before flushing.
const DefaultBatchSize = 500

// Flusher is called when the buffer needs to be flushed.
type Flusher[T any] func(ctx context.Context, items []T) error

// Config holds configuration for batched writing.
type Config struct {
	// BatchSize is the number of items to buffer before flushing.
	// Defaults to DefaultBatchSize.
	BatchSize int
}

// Writer buffers items and flushes them in batches.
type Writer[T any] struct {
	buffer  []T
	mu      sync.Mutex
	flusher Flusher[T]
	config  Config
	logger  *slog.Logger
	flushed int
}

// New creates a new batch writer with the given flusher function.
func New[T any](flusher Flusher[T], cfg Config, logger *slog.Logger) *Writer[T] {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer[T]{
		buffer:  make([]T, 0, cfg.BatchSize),
		flusher: flusher,
		config:  cfg,
		logger:  logger,
	}
}

// Add buffers items, flushing every time the buffer reaches the batch size.
func (w *Writer[T]) Add(ctx context.Context, items ...T) error {
	for _, item := range items {
		w.mu.Lock()
		w.buffer = append(w.buffer, item)
		shouldFlush := len(w.buffer) >= w.config.BatchSize
		w.mu.Unlock()

		if shouldFlush {
			if err := w.Flush(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Write buffers every item and flushes the remainder.
func (w *Writer[T]) Write(ctx context.Context, items []T) error {
	if err := w.Add(ctx, items...); err != nil {
		return err
	}
	return w.Flush(ctx)
}

// Flush writes all buffered items using the flusher function. On failure
// the batch is dropped from the buffer; the caller decides whether to retry
// the whole write.
func (w *Writer[T]) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return nil
	}

	// Copy buffer and reset
	toFlush := make([]T, len(w.buffer))
	copy(toFlush, w.buffer)
	w.buffer = w.buffer[:0]
	w.mu.Unlock()

	w.logger.Debug("flushing buffer", "count", len(toFlush))

	if err := w.flusher(ctx, toFlush); err != nil {
		return err
	}

	w.mu.Lock()
	w.flushed += len(toFlush)
	w.mu.Unlock()

	w.logger.Debug("flushed batch", "count", len(toFlush))
	return nil
}

// BufferLen returns the current number of buffered items.
func (w *Writer[T]) BufferLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}

// Flushed returns the number of items written so far.
func (w *Writer[T]) Flushed() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushed
}
