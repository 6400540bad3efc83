// Package plugins provides a plugin registry for statement loaders and
// output sinks.
package plugins

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/ArionMiles/budgify/pkg/api"
)

// ErrNoLoader is returned when no loader matches a statement file.
var ErrNoLoader = errors.New("no loader matches file")

// LoaderPlugin defines the interface for statement loader plugins.
type LoaderPlugin interface {
	// Name returns the loader key (e.g., "tdvisa", "amex").
	Name() string
	// Description returns a human-readable description.
	Description() string
	// NewLoader creates a new loader instance.
	NewLoader() (api.Loader, error)
}

// SinkPlugin defines the interface for output sink plugins.
type SinkPlugin interface {
	// Name returns the plugin name (e.g., "sheets", "csv", "sqlite").
	Name() string
	// Description returns a human-readable description.
	Description() string
	// RequiredScopes returns the OAuth scopes needed by this plugin.
	RequiredScopes() []string
	// ConfigSchema returns a JSON schema describing the plugin's configuration.
	ConfigSchema() map[string]any
	// NewSink creates a new sink instance with the given config.
	NewSink(httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Sink, error)
}

// Registry manages available loader and sink plugins.
type Registry struct {
	loaders map[string]LoaderPlugin
	sinks   map[string]SinkPlugin
	// order keeps loader registration order for file name matching.
	order []string
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		loaders: make(map[string]LoaderPlugin),
		sinks:   make(map[string]SinkPlugin),
	}
}

// RegisterLoader registers a loader plugin.
func (r *Registry) RegisterLoader(plugin LoaderPlugin) error {
	name := plugin.Name()
	if _, exists := r.loaders[name]; exists {
		return fmt.Errorf("loader plugin %q already registered", name)
	}
	r.loaders[name] = plugin
	r.order = append(r.order, name)
	return nil
}

// RegisterSink registers a sink plugin.
func (r *Registry) RegisterSink(plugin SinkPlugin) error {
	name := plugin.Name()
	if _, exists := r.sinks[name]; exists {
		return fmt.Errorf("sink plugin %q already registered", name)
	}
	r.sinks[name] = plugin
	return nil
}

// GetLoader returns a loader plugin by name.
func (r *Registry) GetLoader(name string) (LoaderPlugin, error) {
	plugin, exists := r.loaders[name]
	if !exists {
		return nil, fmt.Errorf("loader plugin %q not found", name)
	}
	return plugin, nil
}

// GetSink returns a sink plugin by name.
func (r *Registry) GetSink(name string) (SinkPlugin, error) {
	plugin, exists := r.sinks[name]
	if !exists {
		return nil, fmt.Errorf("sink plugin %q not found", name)
	}
	return plugin, nil
}

// ListLoaders returns all registered loader plugins in registration order.
func (r *Registry) ListLoaders() []LoaderPlugin {
	plugins := make([]LoaderPlugin, 0, len(r.order))
	for _, name := range r.order {
		plugins = append(plugins, r.loaders[name])
	}
	return plugins
}

// ListSinks returns all registered sink plugins sorted by name.
func (r *Registry) ListSinks() []SinkPlugin {
	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	slices.Sort(names)

	plugins := make([]SinkPlugin, 0, len(names))
	for _, name := range names {
		plugins = append(plugins, r.sinks[name])
	}
	return plugins
}

// Scopes returns the deduplicated, sorted OAuth scopes required by the named
// sinks.
func (r *Registry) Scopes(sinkNames ...string) ([]string, error) {
	scopeSet := make(map[string]struct{})
	for _, name := range sinkNames {
		sink, err := r.GetSink(name)
		if err != nil {
			return nil, err
		}
		for _, scope := range sink.RequiredScopes() {
			scopeSet[scope] = struct{}{}
		}
	}

	scopes := make([]string, 0, len(scopeSet))
	for scope := range scopeSet {
		scopes = append(scopes, scope)
	}
	slices.Sort(scopes)
	return scopes, nil
}

// CreateLoader creates a loader instance from a plugin.
func (r *Registry) CreateLoader(name string) (api.Loader, error) {
	plugin, err := r.GetLoader(name)
	if err != nil {
		return nil, err
	}
	return plugin.NewLoader()
}

// CreateSink creates a sink instance from a plugin.
func (r *Registry) CreateSink(name string, httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Sink, error) {
	plugin, err := r.GetSink(name)
	if err != nil {
		return nil, err
	}
	return plugin.NewSink(httpClient, config, logger)
}

// Match returns the loader name for a statement file. Overrides map a file
// name token to a loader name and are consulted first, in sorted token
// order. Otherwise the first registered loader whose name is a token of the
// lowercase file name wins.
func (r *Registry) Match(path string, overrides map[string]string) (string, error) {
	tokens := Tokens(path)

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !slices.Contains(tokens, strings.ToLower(k)) {
			continue
		}
		name := overrides[k]
		if _, ok := r.loaders[name]; !ok {
			return "", fmt.Errorf("file %s: loader %q mapped from %q is not registered", path, name, k)
		}
		return name, nil
	}

	for _, name := range r.order {
		if slices.Contains(tokens, name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoLoader, filepath.Base(path))
}

// Tokens splits the lowercase base name of path into runs of letters and
// digits: "TDVisa_2025-01.csv" yields [tdvisa 2025 01 csv].
func Tokens(path string) []string {
	return strings.FieldsFunc(strings.ToLower(filepath.Base(path)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
