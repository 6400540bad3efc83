// Package hometrust provides a plugin wrapper for the Home Trust loader.
package hometrust

import (
	"github.com/ArionMiles/budgify/pkg/api"
	hometrustloader "github.com/ArionMiles/budgify/pkg/loader/hometrust"
)

// Plugin implements the LoaderPlugin interface for Home Trust.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return hometrustloader.Name
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Read Home Trust CSV statements (Trans Date, Merchant Name, Amount)"
}

// NewLoader creates a new Home Trust loader instance.
func (p *Plugin) NewLoader() (api.Loader, error) {
	return hometrustloader.New(), nil
}
