// Package sheets provides a plugin wrapper for the Google Sheets sink.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/plugins/writers"
	sheetswriter "github.com/ArionMiles/budgify/pkg/writer/sheets"
)

// Plugin implements the SinkPlugin interface for Google Sheets.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return sheetswriter.Name
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Write the yearly ledger to a Google Spreadsheet"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return []string{
		sheetsapi.SpreadsheetsScope,
	}
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"spreadsheet_id": map[string]any{
				"type":        "string",
				"description": "ID of an existing spreadsheet to use",
			},
			"title": map[string]any{
				"type":        "string",
				"description": "Title for new spreadsheets, %d is the year (default: Budget %d)",
			},
			"batch_size": map[string]any{
				"type":        "integer",
				"description": "Rows sent per values update (default: 500)",
				"default":     sheetswriter.DefaultBatchSize,
			},
			"writes_per_minute": map[string]any{
				"type":        "integer",
				"description": "Cap on API write calls per minute (default: 60)",
				"default":     sheetswriter.DefaultWritesPerMinute,
			},
			"retry_delay": map[string]any{
				"type":        "integer",
				"description": "Seconds to wait before retrying a rate limited call (default: 60)",
				"default":     60,
			},
		},
	}
}

// Config represents the Sheets sink configuration.
type Config struct {
	SpreadsheetID   string `json:"spreadsheet_id,omitempty"`
	Title           string `json:"title,omitempty" validate:"omitempty,contains=%d"`
	BatchSize       int    `json:"batch_size,omitempty" validate:"gte=0"`
	WritesPerMinute int    `json:"writes_per_minute,omitempty" validate:"gte=0"`
	RetryDelay      int    `json:"retry_delay,omitempty" validate:"gte=0"` // in seconds
}

// NewSink creates a new Sheets sink instance.
func (p *Plugin) NewSink(httpClient *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Sink, error) {
	if httpClient == nil {
		return nil, errors.New("sheets sink requires Google credentials")
	}

	var cfg Config
	if err := writers.Decode(p.Name(), configData, &cfg); err != nil {
		return nil, err
	}

	writerCfg := sheetswriter.Config{
		SpreadsheetID:   cfg.SpreadsheetID,
		Title:           cfg.Title,
		BatchSize:       cfg.BatchSize,
		WritesPerMinute: cfg.WritesPerMinute,
		RetryDelay:      time.Duration(cfg.RetryDelay) * time.Second,
	}

	return sheetswriter.New(context.Background(), httpClient, writerCfg, logger)
}
