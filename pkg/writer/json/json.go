// Package json implements a sink that keeps one JSON array file per year.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/writer"
)

// Name is the sink key.
const Name = "json"

// Config holds configuration for the JSON sink.
type Config struct {
	// Dir is the directory holding the Budget<year>.json files.
	Dir string
	// Indent pretty-prints the output.
	Indent bool
}

// Writer writes the ledger to Budget<year>.json.
type Writer struct {
	config Config
	mu     sync.Mutex
	logger *slog.Logger
}

// New creates a new JSON sink.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("json sink: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating json directory: %w", err)
	}

	logger.Info("json writer initialized", "dir", cfg.Dir)
	return &Writer{config: cfg, logger: logger}, nil
}

// Name implements api.Sink.
func (w *Writer) Name() string { return Name }

// Path returns the file holding year.
func (w *Writer) Path(year int) string {
	return filepath.Join(w.config.Dir, writer.FileName(year, "json"))
}

// Append implements api.Sink. JSON doesn't support appending, so the whole
// array is rewritten.
func (w *Writer) Append(ctx context.Context, txns []api.Transaction, period api.Period) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	existing, err := w.read(period.Year)
	if err != nil {
		return err
	}
	rows := writer.Replace(existing, txns, period)

	path := w.Path(period.Year)
	err = writer.WriteFileAtomic(path, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		if w.config.Indent {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("marshaling json: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	w.logger.Debug("wrote transactions to json", "file", path, "count", len(rows))
	return nil
}

// Load implements api.LedgerSource.
func (w *Writer) Load(ctx context.Context, period api.Period) ([]api.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	txns, err := w.read(period.Year)
	if err != nil {
		return nil, err
	}
	return writer.InPeriod(txns, period), nil
}

func (w *Writer) read(year int) ([]api.Transaction, error) {
	path := w.Path(year)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	// Always decode into a slice, an empty file written as null stays empty.
	txns := make([]api.Transaction, 0)
	if err := json.Unmarshal(data, &txns); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return txns, nil
}

// Years implements api.YearLister.
func (w *Writer) Years(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return writer.Years(w.config.Dir, "json")
}
