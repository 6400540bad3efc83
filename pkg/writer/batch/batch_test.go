package batch

import (
	"context"
	"errors"
	"testing"
)

func TestWriter_FlushesInBatches(t *testing.T) {
	var batches [][]int
	w := New(func(_ context.Context, items []int) error {
		batches = append(batches, items)
		return nil
	}, Config{BatchSize: 2}, nil)

	if err := w.Write(context.Background(), []int{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	if len(batches[2]) != 1 || batches[2][0] != 5 {
		t.Errorf("last batch = %v, want [5]", batches[2])
	}
	if w.Flushed() != 5 {
		t.Errorf("Flushed() = %d, want 5", w.Flushed())
	}
	if w.BufferLen() != 0 {
		t.Errorf("BufferLen() = %d, want 0", w.BufferLen())
	}
}

func TestWriter_DefaultBatchSize(t *testing.T) {
	calls := 0
	w := New(func(context.Context, []string) error {
		calls++
		return nil
	}, Config{}, nil)

	if err := w.Add(context.Background(), "a", "b"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("flushed before reaching DefaultBatchSize")
	}
	if w.BufferLen() != 2 {
		t.Errorf("BufferLen() = %d, want 2", w.BufferLen())
	}
	if err := w.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWriter_FlushError(t *testing.T) {
	boom := errors.New("boom")
	w := New(func(context.Context, []int) error { return boom }, Config{BatchSize: 1}, nil)

	err := w.Write(context.Background(), []int{1})
	if !errors.Is(err, boom) {
		t.Fatalf("Write() error = %v, want %v", err, boom)
	}
	if w.Flushed() != 0 {
		t.Errorf("Flushed() = %d, want 0", w.Flushed())
	}
}

func TestWriter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(func(context.Context, []int) error {
		t.Fatal("flusher called with canceled context")
		return nil
	}, Config{BatchSize: 10}, nil)

	_ = w.Add(ctx, 1)
	if err := w.Flush(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Flush() error = %v, want context.Canceled", err)
	}
}
