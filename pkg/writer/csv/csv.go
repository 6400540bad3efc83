// Package csv implements a sink that keeps one CSV file per year.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/loader"
	"github.com/ArionMiles/budgify/pkg/writer"
)

// Name is the sink key.
const Name = "csv"

// Header is the column layout of the yearly file.
var Header = []string{"date", "description", "merchant", "category", "amount", "provider"}

// Config holds configuration for the CSV sink.
type Config struct {
	// Dir is the directory holding the Budget<year>.csv files.
	Dir string
}

// Writer writes the ledger to Budget<year>.csv, rewriting the file on every
// append.
type Writer struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// New creates a new CSV sink.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("csv sink: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating csv directory: %w", err)
	}

	logger.Info("csv writer initialized", "dir", cfg.Dir)
	return &Writer{dir: cfg.Dir, logger: logger}, nil
}

// Name implements api.Sink.
func (w *Writer) Name() string { return Name }

// Path returns the file holding year.
func (w *Writer) Path(year int) string {
	return filepath.Join(w.dir, writer.FileName(year, "csv"))
}

// Append implements api.Sink. Rows already in the file outside period are
// kept, rows inside it are replaced by txns.
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
		cw := csv.NewWriter(out)
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("writing csv header: %w", err)
		}
		for _, t := range rows {
			if err := cw.Write(record(t)); err != nil {
				return fmt.Errorf("writing csv record: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	w.logger.Debug("wrote transactions to csv", "file", path, "count", len(rows))
	return nil
}

func record(t api.Transaction) []string {
	return []string{
		t.Date.String(),
		t.Description,
		t.Merchant,
		t.Category,
		t.Amount.StringFixed(2),
		t.Provider,
	}
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

// read parses the yearly file. A missing file is an empty ledger.
func (w *Writer) read(year int) ([]api.Transaction, error) {
	path := w.Path(year)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records, err := loader.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(Header))
	for i, label := range records[0].Fields {
		cols[strings.ToLower(strings.TrimSpace(label))] = i
	}
	for _, required := range []string{"date", "description", "amount"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("reading %s: missing column %q", path, required)
		}
	}
	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok {
			return ""
		}
		return loader.Cell(row, i)
	}

	txns := make([]api.Transaction, 0, len(records)-1)
	for _, rec := range records[1:] {
		if loader.IsBlank(rec.Fields) {
			continue
		}
		date, err := loader.ParseDateLayout(cell(rec.Fields, "date"), "2006-01-02")
		if err != nil {
			return nil, fmt.Errorf("reading %s line %d: %w", path, rec.Line, err)
		}
		amount, err := decimal.NewFromString(cell(rec.Fields, "amount"))
		if err != nil {
			return nil, fmt.Errorf("reading %s line %d: parsing amount: %w", path, rec.Line, err)
		}
		category := cell(rec.Fields, "category")
		if category == "" {
			category = api.Uncategorized
		}
		txns = append(txns, api.Transaction{
			Date:        date,
			Description: cell(rec.Fields, "description"),
			Merchant:    cell(rec.Fields, "merchant"),
			Amount:      amount,
			Category:    category,
			Provider:    cell(rec.Fields, "provider"),
			RawSource:   loader.Source(path, rec.Line),
		})
	}
	return txns, nil
}

// Years implements api.YearLister.
func (w *Writer) Years(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return writer.Years(w.dir, "csv")
}
