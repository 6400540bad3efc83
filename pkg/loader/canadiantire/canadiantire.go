// Package canadiantire loads Canadian Tire Mastercard CSV statements.
package canadiantire

import (
	"fmt"
	"io"
	"os"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/loader"
)

// Name is the loader key and the provider of the transactions it yields.
const Name = "canadiantire"

// Loader implements api.Loader.
type Loader struct {
	table loader.Table
}

// New returns a Canadian Tire loader.
func New() *Loader {
	return &Loader{table: loader.Table{Provider: Name}}
}

// Load reads the statement at path.
func (l *Loader) Load(path string, includePayments bool) (*api.LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	return l.Parse(f, path, includePayments)
}

// Parse reads a statement from r. source names the file in RawSource.
func (l *Loader) Parse(r io.Reader, source string, includePayments bool) (*api.LoadResult, error) {
	records, err := loader.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return l.table.Parse(records, source, includePayments)
}
