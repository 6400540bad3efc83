// Package postgres provides a plugin wrapper for the PostgreSQL store.
package postgres

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/plugins/writers"
	pgwriter "github.com/ArionMiles/budgify/pkg/writer/postgres"
)

// Plugin implements the SinkPlugin interface for PostgreSQL.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return pgwriter.Name
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Store transactions in PostgreSQL"
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
			"host": map[string]any{
				"type":        "string",
				"description": "PostgreSQL host",
			},
			"port": map[string]any{
				"type":        "integer",
				"description": "PostgreSQL port (default: 5432)",
				"default":     5432,
			},
			"database": map[string]any{
				"type":        "string",
				"description": "Database name",
			},
			"user": map[string]any{
				"type":        "string",
				"description": "Database user",
			},
			"password": map[string]any{
				"type":        "string",
				"description": "Database password",
			},
			"sslmode": map[string]any{
				"type":        "string",
				"description": "SSL mode: disable, require, verify-ca, verify-full (default: disable)",
				"default":     "disable",
			},
			"max_pool_size": map[string]any{
				"type":        "integer",
				"description": "Maximum number of connections in pool (default: 10)",
				"default":     10,
			},
			"batch_size": map[string]any{
				"type":        "integer",
				"description": "Transactions per database transaction (default: 100)",
				"default":     100,
			},
		},
		"required": []string{"host", "database", "user"},
	}
}

// Config represents the PostgreSQL store configuration.
type Config struct {
	Host        string `json:"host" validate:"required"`
	Port        int    `json:"port,omitempty" validate:"gte=0,lte=65535"`
	Database    string `json:"database" validate:"required"`
	User        string `json:"user" validate:"required"`
	Password    string `json:"password"`
	SSLMode     string `json:"sslmode,omitempty" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxPoolSize int    `json:"max_pool_size,omitempty" validate:"gte=0"`
	BatchSize   int    `json:"batch_size,omitempty" validate:"gte=0"`
}

// NewSink creates a new PostgreSQL store instance.
func (p *Plugin) NewSink(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Sink, error) {
	var cfg Config
	if err := writers.Decode(p.Name(), configData, &cfg); err != nil {
		return nil, err
	}

	writerCfg := pgwriter.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Database:    cfg.Database,
		User:        cfg.User,
		Password:    cfg.Password,
		SSLMode:     cfg.SSLMode,
		MaxPoolSize: cfg.MaxPoolSize,
		BatchSize:   cfg.BatchSize,
	}

	return pgwriter.New(writerCfg, logger)
}
