// Package amex loads American Express statements downloaded as an .xlsx
// workbook or a .csv export.
package amex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/loader"
)

// Name is the loader key and the provider of the transactions it yields.
const Name = "amex"

// Loader implements api.Loader.
type Loader struct {
	table loader.Table
}

// New returns an Amex loader.
func New() *Loader {
	return &Loader{table: loader.Table{Provider: Name}}
}

// Load reads the statement at path. Workbooks are read from their first
// sheet; any other extension is parsed as CSV.
func (l *Loader) Load(path string, includePayments bool) (*api.LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return l.ParseWorkbook(f, path, includePayments)
	case ".xls":
		return nil, fmt.Errorf("legacy .xls workbooks are not supported, re-save %s as .xlsx", filepath.Base(path))
	default:
		return l.ParseCSV(f, path, includePayments)
	}
}

// ParseWorkbook reads the first sheet of an xlsx workbook.
func (l *Loader) ParseWorkbook(r io.Reader, source string, includePayments bool) (*api.LoadResult, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}

	records := make([]loader.Record, len(rows))
	for i, row := range rows {
		records[i] = loader.Record{Line: i + 1, Fields: row}
	}
	return l.table.Parse(records, source, includePayments)
}

// ParseCSV reads a CSV export.
func (l *Loader) ParseCSV(r io.Reader, source string, includePayments bool) (*api.LoadResult, error) {
	records, err := loader.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return l.table.Parse(records, source, includePayments)
}
