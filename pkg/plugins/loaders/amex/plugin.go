// Package amex provides a plugin wrapper for the American Express loader.
package amex

import (
	"github.com/ArionMiles/budgify/pkg/api"
	amexloader "github.com/ArionMiles/budgify/pkg/loader/amex"
)

// Plugin implements the LoaderPlugin interface for American Express.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return amexloader.Name
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Read American Express xlsx workbooks or csv exports"
}

// NewLoader creates a new American Express loader instance.
func (p *Plugin) NewLoader() (api.Loader, error) {
	return amexloader.New(), nil
}
