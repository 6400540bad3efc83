package writer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/ArionMiles/budgify/pkg/api"
)

func tx(m time.Month, d int, desc string) api.Transaction {
	return api.Transaction{Date: civil.Date{Year: 2025, Month: m, Day: d}, Description: desc}
}

func descriptions(txns []api.Transaction) []string {
	out := make([]string, len(txns))
	for i, t := range txns {
		out[i] = t.Description
	}
	return out
}

func TestReplace(t *testing.T) {
	existing := []api.Transaction{tx(1, 5, "jan"), tx(2, 1, "old feb"), tx(3, 1, "mar")}
	incoming := []api.Transaction{tx(2, 3, "new feb"), tx(1, 9, "stray jan")}

	got := descriptions(Replace(existing, incoming, api.Period{Year: 2025, Month: 2}))
	want := []string{"jan", "new feb", "mar"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Replace() = %v, want %v", got, want)
	}

	got = descriptions(Replace(existing, incoming, api.Period{Year: 2025}))
	want = []string{"stray jan", "new feb"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Replace(year) = %v, want %v", got, want)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", FileName(2025, "csv"))

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	})
	if err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want %q", data, "hello")
	}

	boom := errors.New("boom")
	err = WriteFileAtomic(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WriteFileAtomic() error = %v, want boom", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "hello" {
		t.Errorf("failed write replaced the file: %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestYears(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Budget2025.json", "Budget2023.json", "Budget2024.csv", "notes.json", "BudgetX.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	years, err := Years(dir, "json")
	if err != nil {
		t.Fatalf("Years() error = %v", err)
	}
	if fmt.Sprint(years) != "[2023 2025]" {
		t.Errorf("Years() = %v, want [2023 2025]", years)
	}
}
