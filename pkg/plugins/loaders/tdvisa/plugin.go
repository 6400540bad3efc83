// Package tdvisa provides a plugin wrapper for the TD Visa loader.
package tdvisa

import (
	"github.com/ArionMiles/budgify/pkg/api"
	tdvisaloader "github.com/ArionMiles/budgify/pkg/loader/tdvisa"
)

// Plugin implements the LoaderPlugin interface for TD Visa.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return tdvisaloader.Name
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Read TD Visa CSV statements (headerless date, description, debit, credit, balance)"
}

// NewLoader creates a new TD Visa loader instance.
func (p *Plugin) NewLoader() (api.Loader, error) {
	return tdvisaloader.New(), nil
}
