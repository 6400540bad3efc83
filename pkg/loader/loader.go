// Package loader holds the parsing helpers shared by the statement loaders:
// amount cleaning, date coercion, header detection and CSV reading.
package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ErrEmptyAmount is returned when an amount cell holds no digits.
var ErrEmptyAmount = errors.New("empty amount")

// Amount cleaning patterns. Signed keeps the minus sign, Unsigned drops it
// for formats that express negatives with parentheses.
var (
	Signed   = regexp.MustCompile(`[^\d\-.]`)
	Unsigned = regexp.MustCompile(`[^\d.]`)
)

// CleanAmount strips every character matched by strip (currency symbols,
// thousands separators, spaces) and parses the rest as a decimal.
func CleanAmount(raw string, strip *regexp.Regexp) (decimal.Decimal, error) {
	cleaned := strip.ReplaceAllString(raw, "")
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", raw, ErrEmptyAmount)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", raw, err)
	}
	return d, nil
}

// DateLayouts are the layouts tried by ParseDate, in order.
var DateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
	"2006/01/02",
	"02 Jan. 2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"01-02-06",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate coerces a statement date cell into a calendar date. Besides the
// textual layouts it accepts spreadsheet serial numbers.
func ParseDate(raw string) (civil.Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return civil.Date{}, errors.New("empty date")
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("unrecognized date %q", raw)
}

// ParseDateLayout parses raw with exactly one layout.
func ParseDateLayout(raw, layout string) (civil.Date, error) {
	t, err := time.Parse(layout, strings.TrimSpace(raw))
	if err != nil {
		return civil.Date{}, fmt.Errorf("parsing date %q: %w", raw, err)
	}
	return civil.DateOf(t), nil
}

// Record is one CSV record with the 1-based line it starts on. Blank lines
// produce no record, so Line is not always the record index plus one.
type Record struct {
	Line   int
	Fields []string
}

// ReadCSV reads every record of r. Ragged rows are allowed and a leading
// UTF-8 byte order mark is dropped.
func ReadCSV(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var records []Record
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parsing csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, Record{Line: line, Fields: fields})
	}
}

// Rows returns the fields of every record.
func Rows(records []Record) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.Fields
	}
	return rows
}

// Header describes a detected header row.
type Header struct {
	// Index is the 0-based record index of the header row.
	Index int
	// Columns maps the lowercased, trimmed header label to its position.
	Columns map[string]int
	labels  []string
}

// FindHeader returns the first row that has cells containing every fragment
// (case-insensitive). Rows above it are treated as boilerplate.
func FindHeader(rows [][]string, fragments ...string) (*Header, error) {
	for i, row := range rows {
		if !rowHasAll(row, fragments) {
			continue
		}
		h := &Header{Index: i, Columns: make(map[string]int, len(row))}
		for j, cell := range row {
			label := strings.ToLower(strings.TrimSpace(cell))
			h.labels = append(h.labels, label)
			if _, dup := h.Columns[label]; !dup && label != "" {
				h.Columns[label] = j
			}
		}
		return h, nil
	}
	return nil, fmt.Errorf("locating header row with %s: not found", strings.Join(fragments, ", "))
}

func rowHasAll(row []string, fragments []string) bool {
	for _, frag := range fragments {
		found := false
		for _, cell := range row {
			if strings.Contains(strings.ToLower(strings.TrimSpace(cell)), frag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Find returns the column whose label equals frag, or else the first column
// whose label contains it. The second result is false when none does.
func (h *Header) Find(frag string) (int, bool) {
	frag = strings.ToLower(frag)
	if i, ok := h.Columns[frag]; ok {
		return i, true
	}
	for i, label := range h.labels {
		if strings.Contains(label, frag) {
			return i, true
		}
	}
	return 0, false
}

// Cell returns row[i] trimmed, or "" when the row is too short.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// IsBlank reports whether every cell of row is empty.
func IsBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// RawLine renders a record back into a single line for row error reports.
func RawLine(row []string) string {
	return strings.Join(row, ",")
}

// Source formats the RawSource reference of a row.
func Source(path string, line int) string {
	return fmt.Sprintf("%s:%d", path, line)
}
