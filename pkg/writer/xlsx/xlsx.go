// Package xlsx implements a sink that keeps one Excel workbook per year with
// a Summary sheet, an AllData sheet and one sheet per month.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/loader"
	"github.com/ArionMiles/budgify/pkg/writer"
)

// Name is the sink key.
const Name = "xlsx"

// Sheet names.
const (
	SummarySheet = writer.SummaryTab
	AllDataSheet = writer.AllDataTab
)

// Config holds configuration for the workbook sink.
type Config struct {
	// Dir is the directory holding the Budget<year>.xlsx files.
	Dir string
}

// Writer rebuilds Budget<year>.xlsx on every append.
type Writer struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// New creates a new workbook sink.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("xlsx sink: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating xlsx directory: %w", err)
	}

	logger.Info("xlsx writer initialized", "dir", cfg.Dir)
	return &Writer{dir: cfg.Dir, logger: logger}, nil
}

// Name implements api.Sink.
func (w *Writer) Name() string { return Name }

// Path returns the workbook holding year.
func (w *Writer) Path(year int) string {
	return filepath.Join(w.dir, writer.FileName(year, "xlsx"))
}

// Append implements api.Sink.
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

	f, err := build(rows)
	if err != nil {
		return err
	}
	defer f.Close()

	path := w.Path(period.Year)
	err = writer.WriteFileAtomic(path, func(out io.Writer) error {
		_, err := f.WriteTo(out)
		return err
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	w.logger.Debug("wrote workbook", "file", path, "count", len(rows))
	return nil
}

func build(rows []api.Transaction) (*excelize.File, error) {
	tabs, err := writer.Tabs(rows)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return nil, fmt.Errorf("naming summary sheet: %w", err)
	}
	for _, tab := range tabs {
		if err := writeSheet(f, tab); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, tab writer.Tab) error {
	if idx, _ := f.GetSheetIndex(tab.Name); idx < 0 {
		if _, err := f.NewSheet(tab.Name); err != nil {
			return fmt.Errorf("creating sheet %q: %w", tab.Name, err)
		}
	}
	for i, row := range tab.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(tab.Name, cell, &row); err != nil {
			return fmt.Errorf("writing %q row %d: %w", tab.Name, i+1, err)
		}
	}
	return nil
}

// Load implements api.LedgerSource by reading the AllData sheet.
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
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(AllDataSheet)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", path, AllDataSheet, err)
	}

	var txns []api.Transaction
	for i, row := range rows {
		if i == 0 || loader.IsBlank(row) {
			continue
		}
		t, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("reading %s %s row %d: %w", path, AllDataSheet, i+1, err)
		}
		t.RawSource = loader.Source(path, i+1)
		txns = append(txns, t)
	}
	return txns, nil
}

func parseRow(row []string) (api.Transaction, error) {
	date, err := loader.ParseDateLayout(loader.Cell(row, 1), "2006-01-02")
	if err != nil {
		return api.Transaction{}, err
	}
	amount, err := decimal.NewFromString(loader.Cell(row, 5))
	if err != nil {
		return api.Transaction{}, fmt.Errorf("parsing amount: %w", err)
	}
	category := loader.Cell(row, 4)
	if category == "" {
		category = api.Uncategorized
	}
	return api.Transaction{
		Date:        date,
		Description: loader.Cell(row, 2),
		Merchant:    loader.Cell(row, 3),
		Category:    category,
		Amount:      amount,
		Provider:    loader.Cell(row, 6),
	}, nil
}

// Years implements api.YearLister.
func (w *Writer) Years(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return writer.Years(w.dir, "xlsx")
}
