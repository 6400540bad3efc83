// Package entries reads the transactions that do not come from a bank
// statement: the manual entries file and recurring schedules from config.
package entries

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/loader"
)

// Manual is one entry of the manual transactions file.
type Manual struct {
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Merchant    string `yaml:"merchant"`
	Amount      string `yaml:"amount"`
	Category    string `yaml:"category"`
	Provider    string `yaml:"provider"`
}

// LoadManual reads the YAML list of manual transactions at path. A missing
// file yields no entries. Any invalid entry fails the whole file.
func LoadManual(path string) ([]api.Transaction, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manual entries: %w", err)
	}
	return ParseManual(data, path)
}

// ParseManual decodes a manual entries document. source names the file in
// RawSource.
func ParseManual(data []byte, source string) ([]api.Transaction, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manual entries: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	list := doc.Content[0]
	if list.Kind == yaml.ScalarNode && list.Tag == "!!null" {
		return nil, nil
	}
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("parsing manual entries: line %d: expected a list", list.Line)
	}

	txns := make([]api.Transaction, 0, len(list.Content))
	for _, node := range list.Content {
		var m Manual
		if err := node.Decode(&m); err != nil {
			return nil, fmt.Errorf("parsing manual entry on line %d: %w", node.Line, err)
		}
		t, err := m.Transaction()
		if err != nil {
			return nil, fmt.Errorf("manual entry on line %d: %w", node.Line, err)
		}
		t.RawSource = loader.Source(source, node.Line)
		txns = append(txns, t)
	}
	return txns, nil
}

// Transaction validates m and converts it.
func (m Manual) Transaction() (api.Transaction, error) {
	if strings.TrimSpace(m.Date) == "" {
		return api.Transaction{}, errors.New("missing date")
	}
	date, err := loader.ParseDateLayout(m.Date, "2006-01-02")
	if err != nil {
		return api.Transaction{}, err
	}
	amount, err := parseAmount(m.Amount)
	if err != nil {
		return api.Transaction{}, err
	}

	provider := m.Provider
	if provider == "" {
		provider = api.ProviderManual
	}
	return api.Transaction{
		Date:        date,
		Description: strings.TrimSpace(m.Description),
		Merchant:    strings.TrimSpace(m.Merchant),
		Amount:      amount,
		Category:    m.Category,
		Provider:    provider,
	}, nil
}

// parseAmount treats an absent amount as zero.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}
