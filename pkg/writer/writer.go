// Package writer holds helpers shared by the file based sinks.
package writer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ArionMiles/budgify/pkg/api"
)

// FileName returns the yearly target name, e.g. Budget2025.csv.
func FileName(year int, ext string) string {
	return fmt.Sprintf("Budget%d.%s", year, ext)
}

// Replace returns the persisted rows outside period followed by txns,
// sorted by date. Sinks use it so a month scoped write keeps the rest of the
// yearly file intact.
func Replace(existing, txns []api.Transaction, period api.Period) []api.Transaction {
	out := make([]api.Transaction, 0, len(existing)+len(txns))
	for _, t := range existing {
		if !period.Contains(t.Date) {
			out = append(out, t)
		}
	}
	for _, t := range txns {
		if period.Contains(t.Date) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// InPeriod returns the transactions that fall inside period.
func InPeriod(txns []api.Transaction, period api.Period) []api.Transaction {
	var out []api.Transaction
	for _, t := range txns {
		if period.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// WriteFileAtomic writes path through a temporary file in the same
// directory and renames it into place, so readers never see a partial file.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// Years returns the years of the Budget<year>.<ext> files in dir, ascending.
func Years(dir, ext string) ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "Budget*."+ext))
	if err != nil {
		return nil, err
	}
	var years []int
	for _, m := range matches {
		var year int
		if _, err := fmt.Sscanf(filepath.Base(m), "Budget%d."+ext, &year); err == nil {
			years = append(years, year)
		}
	}
	sort.Ints(years)
	return years, nil
}
