package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/ArionMiles/budgify/internal/plugins"
	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/client"
	"github.com/ArionMiles/budgify/pkg/config"
)

// Sinks are the configured sinks of a run.
type Sinks struct {
	List []api.Sink
	// Source is the ledger of record, or nil when no sink can be read back.
	// It may be a configured sink outside List when Only left it out.
	Source api.LedgerSource

	readers []api.Sink
}

// OpenOptions tune OpenSinks.
type OpenOptions struct {
	// Only restricts the sinks to these names, keeping configured order.
	Only []string
	// Interactive allows the browser OAuth flow when a token is missing.
	Interactive bool
	// HTTPClient overrides the Google client built from cfg.Google.
	HTTPClient *http.Client
}

// OpenSinks builds the sinks named in cfg. A Google HTTP client is created
// only when a selected sink asks for OAuth scopes. The ledger source is
// opened even when Only leaves it out, so year rewrites still start from the
// persisted ledger.
func OpenSinks(ctx context.Context, reg *plugins.Registry, cfg *config.Config, opts OpenOptions, logger *slog.Logger) (*Sinks, error) {
	if logger == nil {
		logger = slog.Default()
	}
	names := cfg.SinkNames()
	if len(opts.Only) > 0 {
		for _, n := range opts.Only {
			if _, ok := cfg.Sinks[n]; !ok {
				return nil, fmt.Errorf("sink %q is not configured", n)
			}
		}
		names = opts.Only
	}

	scopeNames := names
	if cfg.LedgerSource != "" && !slices.Contains(names, cfg.LedgerSource) {
		scopeNames = append(slices.Clone(names), cfg.LedgerSource)
	}
	scopes, err := reg.Scopes(scopeNames...)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if len(scopes) > 0 && httpClient == nil {
		logger.Info("OAuth scopes required", "scopes", scopes)
		httpClient, err = client.New(ctx, client.Config{
			CredentialsFile: cfg.Google.CredentialsFile,
			TokenFile:       cfg.Google.TokenFile,
			Interactive:     opts.Interactive,
			Logger:          logger.With("component", "client"),
		}, scopes...)
		if err != nil {
			return nil, fmt.Errorf("creating http client: %w", err)
		}
	}

	s := &Sinks{}
	create := func(name string) (api.Sink, error) {
		raw, err := cfg.SinkConfig(name)
		if err != nil {
			return nil, err
		}
		sink, err := reg.CreateSink(name, httpClient, raw, logger.With("component", "sink", "plugin", name))
		if err != nil {
			return nil, fmt.Errorf("creating %s sink: %w", name, err)
		}
		return sink, nil
	}
	for _, name := range names {
		sink, err := create(name)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.List = append(s.List, sink)
	}

	if len(opts.Only) == 0 || (cfg.LedgerSource != "" && slices.Contains(names, cfg.LedgerSource)) {
		s.Source, err = pickSource(s.List, cfg.LedgerSource)
		if err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	}

	if cfg.LedgerSource != "" {
		sink, err := create(cfg.LedgerSource)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.readers = append(s.readers, sink)
		if s.Source, err = pickSource([]api.Sink{sink}, cfg.LedgerSource); err != nil {
			s.Close()
			return nil, err
		}
		logger.Info("reading ledger from unselected sink", "sink", cfg.LedgerSource)
		return s, nil
	}

	if s.Source, _ = pickSource(s.List, ""); s.Source != nil {
		return s, nil
	}
	for _, name := range cfg.SinkNames() {
		if slices.Contains(names, name) {
			continue
		}
		if need, err := reg.Scopes(name); err != nil || len(need) > 0 && httpClient == nil {
			continue
		}
		sink, err := create(name)
		if err != nil {
			logger.Warn("skipping ledger source candidate", "sink", name, "error", err)
			continue
		}
		src, ok := sink.(api.LedgerSource)
		if !ok {
			_ = closeSink(sink)
			continue
		}
		s.readers = append(s.readers, sink)
		s.Source = src
		logger.Info("reading ledger from unselected sink", "sink", name)
		break
	}
	return s, nil
}

// pickSource returns the named sink, or the first sink that is a
// LedgerSource when name is empty.
func pickSource(sinks []api.Sink, name string) (api.LedgerSource, error) {
	for _, sink := range sinks {
		src, ok := sink.(api.LedgerSource)
		if name == "" && ok {
			return src, nil
		}
		if sink.Name() == name {
			if !ok {
				return nil, fmt.Errorf("sink %q cannot be read back as the ledger", name)
			}
			return src, nil
		}
	}
	if name != "" {
		return nil, fmt.Errorf("ledger source %q is not among the selected sinks", name)
	}
	return nil, nil
}

// Close closes the sinks that hold resources.
func (s *Sinks) Close() error {
	var errs []error
	for _, sink := range slices.Concat(s.List, s.readers) {
		if err := closeSink(sink); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func closeSink(sink api.Sink) error {
	if c, ok := sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
