// Package xlsx provides a plugin wrapper for the Excel workbook sink.
package xlsx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/plugins/writers"
	xlsxwriter "github.com/ArionMiles/budgify/pkg/writer/xlsx"
)

// Plugin implements the SinkPlugin interface for Excel workbooks.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return xlsxwriter.Name
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Write Budget<year>.xlsx with Summary, AllData and month sheets"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dir": map[string]any{
				"type":        "string",
				"description": "Directory holding the Budget<year>.xlsx files",
			},
		},
		"required": []string{"dir"},
	}
}

// Config represents the workbook sink configuration.
type Config struct {
	Dir string `json:"dir" validate:"required"`
}

// NewSink creates a new workbook sink instance.
func (p *Plugin) NewSink(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Sink, error) {
	var cfg Config
	if err := writers.Decode(p.Name(), configData, &cfg); err != nil {
		return nil, err
	}
	return xlsxwriter.New(xlsxwriter.Config{Dir: cfg.Dir}, logger)
}
