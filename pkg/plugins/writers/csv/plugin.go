// Package csv provides a plugin wrapper for the CSV sink.
package csv

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/plugins/writers"
	csvwriter "github.com/ArionMiles/budgify/pkg/writer/csv"
)

// Plugin implements the SinkPlugin interface for CSV files.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return csvwriter.Name
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Write the yearly ledger to Budget<year>.csv"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	// CSV sink doesn't need OAuth scopes
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dir": map[string]any{
				"type":        "string",
				"description": "Directory holding the Budget<year>.csv files",
			},
		},
		"required": []string{"dir"},
	}
}

// Config represents the CSV sink configuration.
type Config struct {
	Dir string `json:"dir" validate:"required"`
}

// NewSink creates a new CSV sink instance.
func (p *Plugin) NewSink(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Sink, error) {
	var cfg Config
	if err := writers.Decode(p.Name(), configData, &cfg); err != nil {
		return nil, err
	}
	return csvwriter.New(csvwriter.Config{Dir: cfg.Dir}, logger)
}
