// Package json provides a plugin wrapper for the JSON sink.
package json

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/plugins/writers"
	jsonwriter "github.com/ArionMiles/budgify/pkg/writer/json"
)

// Plugin implements the SinkPlugin interface for JSON files.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return jsonwriter.Name
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Write the yearly ledger to Budget<year>.json"
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
				"description": "Directory holding the Budget<year>.json files",
			},
			"indent": map[string]any{
				"type":        "boolean",
				"description": "Pretty-print the output (default: false)",
				"default":     false,
			},
		},
		"required": []string{"dir"},
	}
}

// Config represents the JSON sink configuration.
type Config struct {
	Dir    string `json:"dir" validate:"required"`
	Indent bool   `json:"indent,omitempty"`
}

// NewSink creates a new JSON sink instance.
func (p *Plugin) NewSink(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Sink, error) {
	var cfg Config
	if err := writers.Decode(p.Name(), configData, &cfg); err != nil {
		return nil, err
	}
	return jsonwriter.New(jsonwriter.Config{Dir: cfg.Dir, Indent: cfg.Indent}, logger)
}
