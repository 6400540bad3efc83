// Package canadiantire provides a plugin wrapper for the Canadian Tire loader.
package canadiantire

import (
	"github.com/ArionMiles/budgify/pkg/api"
	canadiantireloader "github.com/ArionMiles/budgify/pkg/loader/canadiantire"
)

// Plugin implements the LoaderPlugin interface for Canadian Tire.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return canadiantireloader.Name
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Read Canadian Tire Mastercard CSV statements"
}

// NewLoader creates a new Canadian Tire loader instance.
func (p *Plugin) NewLoader() (api.Loader, error) {
	return canadiantireloader.New(), nil
}
