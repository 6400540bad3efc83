// Package sqlite provides a plugin wrapper for the SQLite store.
package sqlite

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/plugins/writers"
	sqlitewriter "github.com/ArionMiles/budgify/pkg/writer/sqlite"
)

// Plugin implements the SinkPlugin interface for SQLite.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return sqlitewriter.Name
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Store transactions in a local SQLite database"
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
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the database file",
			},
		},
		"required": []string{"path"},
	}
}

// Config represents the SQLite store configuration.
type Config struct {
	Path string `json:"path" validate:"required"`
}

// NewSink creates a new SQLite store instance.
func (p *Plugin) NewSink(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Sink, error) {
	var cfg Config
	if err := writers.Decode(p.Name(), configData, &cfg); err != nil {
		return nil, err
	}
	return sqlitewriter.New(sqlitewriter.Config{Path: cfg.Path}, logger)
}
